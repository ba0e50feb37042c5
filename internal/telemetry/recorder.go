package telemetry

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventTimeLayout is the millisecond-precision ISO-8601 layout used for event
// and context timestamps.
const EventTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DurableLog receives every recorded event for persistence across restarts.
type DurableLog interface {
	Append(event InteractionEvent) error
}

// Sink receives a copy of every recorded event, e.g. for mirroring into an
// analytics warehouse. Implementations must not block the caller.
type Sink interface {
	Write(event *InteractionEvent)
}

// Recorder is the single ingestion point for interaction events. It owns the
// in-memory session log, stamps every event with an identifier, session ID,
// timestamp and context snapshot, and forwards each event to the durable log
// and the optional sink.
//
// Recording never fails: durable append errors are logged and the in-memory
// log stays authoritative for the live session.
type Recorder struct {
	mu       sync.Mutex
	events   []InteractionEvent
	lastScrl float64
	closed   bool

	sessionID    string
	sessionStart time.Time
	snapshots    *SnapshotProvider
	durable      DurableLog
	sink         Sink
	logger       *zap.Logger
	now          func() time.Time
}

// RecorderOptions configures optional recorder collaborators.
type RecorderOptions struct {
	Durable DurableLog
	Sink    Sink
	Logger  *zap.Logger
}

// NewRecorder creates a recorder with a fresh session ID and immediately
// records the implicit session_start event.
func NewRecorder(ambient *Ambient, opts RecorderOptions) *Recorder {
	return newRecorderAt(ambient, opts, time.Now)
}

func newRecorderAt(ambient *Ambient, opts RecorderOptions, now func() time.Time) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := now()
	r := &Recorder{
		sessionID:    fmt.Sprintf("session_%d_%s", start.UnixMilli(), randomSuffix(9)),
		sessionStart: start,
		durable:      opts.Durable,
		sink:         opts.Sink,
		logger:       logger,
		now:          now,
	}
	r.snapshots = NewSnapshotProvider(ambient, start)
	r.snapshots.now = now

	r.Record(TypeSessionStart, &MarkerData{})
	return r
}

// SessionID returns the identifier generated for this recorder's session.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// SessionStart returns when this session began.
func (r *Recorder) SessionStart() time.Time {
	return r.sessionStart
}

// Events returns a copy of the in-memory session log.
func (r *Recorder) Events() []InteractionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]InteractionEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Record stamps and appends an event of the given type. A nil data payload is
// stored as an empty marker; payload contents are accepted verbatim.
func (r *Recorder) Record(t InteractionType, data InteractionData) InteractionEvent {
	if data == nil {
		data = &MarkerData{}
	}

	r.mu.Lock()
	now := r.now()
	event := InteractionEvent{
		ID:        fmt.Sprintf("%d_%s", now.UnixMilli(), randomSuffix(9)),
		SessionID: r.sessionID,
		Timestamp: now.UTC().Format(EventTimeLayout),
		Type:      t,
		Data:      data,
		Context:   r.snapshots.Snapshot(),
	}
	r.events = append(r.events, event)

	// Forwarded under the lock so the durable mirror keeps append order.
	if r.durable != nil {
		if err := r.durable.Append(event); err != nil {
			r.logger.Warn("durable append failed",
				zap.String("event_id", event.ID),
				zap.String("type", string(t)),
				zap.Error(err),
			)
		}
	}
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.Write(&event)
	}

	r.logger.Debug("interaction recorded",
		zap.String("event_id", event.ID),
		zap.String("type", string(t)),
	)
	return event
}

// RecordTabSwitch records a navigation from one tab to another.
func (r *Recorder) RecordTabSwitch(fromTab, toTab string) InteractionEvent {
	return r.Record(TypeTabSwitch, &TabSwitchData{FromTab: fromTab, ToTab: toTab})
}

// RecordChatMessage records a chat message. A positive responseTime is stored
// in milliseconds; zero or negative means the caller did not measure one.
func (r *Recorder) RecordChatMessage(message string, responseTime time.Duration) InteractionEvent {
	data := &ChatMessageData{
		Message:       message,
		MessageLength: len(message),
	}
	if responseTime > 0 {
		ms := responseTime.Milliseconds()
		data.ResponseTimeMs = &ms
	}
	return r.Record(TypeChatMessage, data)
}

// RecordSuggestedPromptClick records a click on a suggested prompt.
func (r *Recorder) RecordSuggestedPromptClick(prompt string) InteractionEvent {
	return r.Record(TypeSuggestedPromptClick, &PromptClickData{SuggestedPrompt: prompt})
}

// RecordHistoryClick records a click on a chat-history item.
func (r *Recorder) RecordHistoryClick(messageType string) InteractionEvent {
	return r.Record(TypeHistoryClick, &HistoryClickData{Value: messageType})
}

// RecordVisualizationClick records a click on a visualization element.
func (r *Recorder) RecordVisualizationClick(elementID, visualizationType string) InteractionEvent {
	return r.Record(TypeVisualizationClick, &VisualizationClickData{
		ElementID:         elementID,
		VisualizationType: visualizationType,
	})
}

// RecordCOACardHover records a hover over a course-of-action card.
func (r *Recorder) RecordCOACardHover(coaID, coaName string) InteractionEvent {
	return r.Record(TypeCOACardHover, &COACardData{COAID: coaID, COAName: coaName})
}

// RecordCOACardClick records a click on a course-of-action card.
func (r *Recorder) RecordCOACardClick(coaID, coaName string) InteractionEvent {
	return r.Record(TypeCOACardClick, &COACardData{COAID: coaID, COAName: coaName})
}

// RecordError records an error occurrence. An empty errorType defaults to
// "general".
func (r *Recorder) RecordError(errorMessage, errorType string) InteractionEvent {
	if errorType == "" {
		errorType = "general"
	}
	return r.Record(TypeErrorOccurrence, &ErrorData{
		ErrorMessage: errorMessage,
		ErrorType:    errorType,
	})
}

// RecordPageFocus records the page gaining focus.
func (r *Recorder) RecordPageFocus() InteractionEvent {
	return r.Record(TypePageFocus, &MarkerData{})
}

// RecordPageBlur records the page losing focus.
func (r *Recorder) RecordPageBlur() InteractionEvent {
	return r.Record(TypePageBlur, &MarkerData{})
}

// RecordScroll records a scroll to the given position. Direction is "down"
// when the position strictly exceeds the last recorded position (initially 0),
// else "up". The reference position updates unconditionally.
func (r *Recorder) RecordScroll(position float64) InteractionEvent {
	r.mu.Lock()
	direction := "up"
	if position > r.lastScrl {
		direction = "down"
	}
	r.lastScrl = position
	r.mu.Unlock()

	return r.Record(TypeScrollEvent, &ScrollData{
		ScrollPosition:  position,
		ScrollDirection: direction,
	})
}

// Close records the best-effort session_end event. Safe to call once; later
// calls are no-ops.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.Record(TypeSessionEnd, &MarkerData{})
}

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomSuffix returns n random base36 characters. Combined with a
// millisecond timestamp this keeps IDs distinct even within one millisecond.
func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read only fails on a broken platform entropy source.
		panic(fmt.Sprintf("telemetry: random suffix: %v", err))
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
