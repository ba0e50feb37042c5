package api

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/chread"
	"github.com/clarity-ai/beacon/internal/export"
	"github.com/clarity-ai/beacon/internal/storage"
	"github.com/clarity-ai/beacon/internal/store"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

// Dependencies holds shared state injected into all HTTP handlers. The live
// recorder and hover registry are swappable: the destructive reset replaces
// them with a fresh session.
type Dependencies struct {
	mu       sync.RWMutex
	recorder *telemetry.Recorder
	hovers   *telemetry.HoverRegistry
	tickets  sync.Map // ticket ID -> *telemetry.HoverTicket

	Ambient   *telemetry.Ambient
	Log       *storage.LogStore
	Legacy    *storage.LegacyStore
	Export    *export.Service
	Store     *store.Store   // nil if Postgres unavailable
	Reader    *chread.Reader // nil if ClickHouse unavailable
	StaticKey string
	Logger    *zap.Logger
	CacheTTL  time.Duration

	// NewSession builds a replacement recorder + registry after a reset.
	NewSession func() (*telemetry.Recorder, *telemetry.HoverRegistry)
}

// SetSession installs the live recorder and hover registry.
func (d *Dependencies) SetSession(rec *telemetry.Recorder, hov *telemetry.HoverRegistry) {
	d.mu.Lock()
	d.recorder = rec
	d.hovers = hov
	d.mu.Unlock()
}

// Recorder returns the live session recorder.
func (d *Dependencies) Recorder() *telemetry.Recorder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.recorder
}

// Hovers returns the live hover registry.
func (d *Dependencies) Hovers() *telemetry.HoverRegistry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hovers
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Emission interface (auth required when a key source is configured)
	mux.HandleFunc("POST /api/beacon/events", deps.authMiddleware(deps.handleRecord))
	mux.HandleFunc("POST /api/beacon/events/tab-switch", deps.authMiddleware(deps.handleTabSwitch))
	mux.HandleFunc("POST /api/beacon/events/chat", deps.authMiddleware(deps.handleChatMessage))
	mux.HandleFunc("POST /api/beacon/events/prompt-click", deps.authMiddleware(deps.handlePromptClick))
	mux.HandleFunc("POST /api/beacon/events/history-click", deps.authMiddleware(deps.handleHistoryClick))
	mux.HandleFunc("POST /api/beacon/events/viz-click", deps.authMiddleware(deps.handleVizClick))
	mux.HandleFunc("POST /api/beacon/events/coa", deps.authMiddleware(deps.handleCOA))
	mux.HandleFunc("POST /api/beacon/events/error", deps.authMiddleware(deps.handleError))
	mux.HandleFunc("POST /api/beacon/events/scroll", deps.authMiddleware(deps.handleScroll))
	mux.HandleFunc("POST /api/beacon/events/focus", deps.authMiddleware(deps.handleFocus))
	mux.HandleFunc("POST /api/beacon/events/blur", deps.authMiddleware(deps.handleBlur))

	// Hover tickets
	mux.HandleFunc("POST /api/beacon/hovers", deps.authMiddleware(deps.handleBeginHover))
	mux.HandleFunc("DELETE /api/beacon/hovers/{ticket_id}", deps.authMiddleware(deps.handleEndHover))

	// Ambient context + the independent lightweight log
	mux.HandleFunc("POST /api/beacon/context", deps.authMiddleware(deps.handleContext))
	mux.HandleFunc("POST /api/beacon/log", deps.authMiddleware(deps.handleLegacyLog))

	// Read interface (no auth — read-only snapshots for display collaborators)
	mux.HandleFunc("GET /api/beacon/session", deps.handleGetSession)
	mux.HandleFunc("GET /api/beacon/session/events", deps.handleSessionEvents)
	mux.HandleFunc("GET /api/beacon/analytics", deps.handleGetAnalytics)
	mux.HandleFunc("GET /api/beacon/analytics/global", deps.handleGlobalAnalytics)
	mux.HandleFunc("GET /api/beacon/events/archive", deps.handleArchiveEvents)

	// Export + destructive reset
	mux.HandleFunc("GET /api/beacon/export/session", deps.handleExportSession)
	mux.HandleFunc("GET /api/beacon/export/all", deps.handleExportAll)
	mux.HandleFunc("POST /api/beacon/reset", deps.handleReset)

	// Study registry CRUD (no auth — dashboard auth added later)
	mux.HandleFunc("POST /api/beacon/studies", deps.handleCreateStudy)
	mux.HandleFunc("GET /api/beacon/studies", deps.handleListStudies)
	mux.HandleFunc("GET /api/beacon/studies/{study_id}", deps.handleGetStudy)
	mux.HandleFunc("DELETE /api/beacon/studies/{study_id}", deps.handleDeleteStudy)
	mux.HandleFunc("POST /api/beacon/studies/{study_id}/rotate-key", deps.handleRotateKey)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
