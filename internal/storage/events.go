package storage

import (
	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/telemetry"
)

// EventWriter is the interface for mirroring interaction events into a
// warehouse. Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *telemetry.InteractionEvent)
	Close()
}

// LogWriter is a fallback EventWriter for local development.
// It logs events as structured JSON to stdout via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(event *telemetry.InteractionEvent) {
	w.logger.Info("interaction_event",
		zap.String("event_id", event.ID),
		zap.String("session_id", event.SessionID),
		zap.String("type", string(event.Type)),
		zap.String("timestamp", event.Timestamp),
		zap.String("current_tab", event.Context.CurrentTab),
		zap.Int("chat_history_length", event.Context.ChatHistoryLength),
	)
}

func (w *LogWriter) Close() {}
