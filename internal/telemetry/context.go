package telemetry

import (
	"sync"
	"time"
)

// Ambient tracks the mutable UI-side state that gets snapshotted into every
// event: the active tab, chat history length, the explanation currently on
// screen, and the client identity. Collaborators update it as the UI changes.
type Ambient struct {
	mu sync.RWMutex

	currentTab         string
	chatHistoryLength  int
	currentExplanation string
	userAgent          string
	screenResolution   string
}

// NewAmbient returns an empty ambient state. Unset fields snapshot as "".
func NewAmbient() *Ambient {
	return &Ambient{}
}

// SetTab records the currently active tab.
func (a *Ambient) SetTab(tab string) {
	a.mu.Lock()
	a.currentTab = tab
	a.mu.Unlock()
}

// SetChatHistoryLength records the current chat history length.
func (a *Ambient) SetChatHistoryLength(n int) {
	a.mu.Lock()
	a.chatHistoryLength = n
	a.mu.Unlock()
}

// SetExplanation records a summary of the explanation currently displayed.
func (a *Ambient) SetExplanation(summary string) {
	a.mu.Lock()
	a.currentExplanation = summary
	a.mu.Unlock()
}

// SetClient records the client identity string and display resolution.
func (a *Ambient) SetClient(userAgent, screenResolution string) {
	a.mu.Lock()
	if userAgent != "" {
		a.userAgent = userAgent
	}
	if screenResolution != "" {
		a.screenResolution = screenResolution
	}
	a.mu.Unlock()
}

// SnapshotProvider captures point-in-time InteractionContext values from an
// Ambient. Snapshot never fails: unavailable fields degrade to zero values.
type SnapshotProvider struct {
	ambient      *Ambient
	sessionStart time.Time
	now          func() time.Time
}

// NewSnapshotProvider creates a provider anchored at sessionStart.
func NewSnapshotProvider(ambient *Ambient, sessionStart time.Time) *SnapshotProvider {
	return &SnapshotProvider{
		ambient:      ambient,
		sessionStart: sessionStart,
		now:          time.Now,
	}
}

// Snapshot returns the current ambient state as an immutable context.
func (p *SnapshotProvider) Snapshot() InteractionContext {
	now := p.now()

	ctx := InteractionContext{
		SessionDurationMs: now.Sub(p.sessionStart).Milliseconds(),
		Timestamp:         now.UTC().Format(EventTimeLayout),
	}
	if p.ambient != nil {
		p.ambient.mu.RLock()
		ctx.CurrentTab = p.ambient.currentTab
		ctx.ChatHistoryLength = p.ambient.chatHistoryLength
		ctx.CurrentExplanation = p.ambient.currentExplanation
		ctx.UserAgent = p.ambient.userAgent
		ctx.ScreenResolution = p.ambient.screenResolution
		p.ambient.mu.RUnlock()
	}
	return ctx
}
