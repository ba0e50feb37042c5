// Package export serializes interaction logs and their derived analytics into
// downloadable JSON artifacts, and hosts the confirmation-gated full reset.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/analytics"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

// ConfirmPhrase must accompany a ClearAll call. Clearing is destructive and
// irreversible, so the phrase is never assumed.
const ConfirmPhrase = "delete all interaction data"

// ErrNotConfirmed is returned when ClearAll is invoked without the exact
// confirmation phrase.
var ErrNotConfirmed = errors.New("export: clear not confirmed")

// Artifact is a serialized export ready for download.
type Artifact struct {
	Filename string
	Body     []byte
}

// SessionDocument is the session-scoped export schema.
type SessionDocument struct {
	ExportTimestamp  string                       `json:"exportTimestamp"`
	SessionID        string                       `json:"sessionId"`
	StartTime        string                       `json:"startTime,omitempty"`
	UserAgent        string                       `json:"userAgent,omitempty"`
	ScreenResolution string                       `json:"screenResolution,omitempty"`
	Analytics        analytics.Analytics          `json:"analytics"`
	Interactions     []telemetry.InteractionEvent `json:"interactions"`
}

// FullDocument is the whole-store export schema. No sessionId: it spans every
// persisted session.
type FullDocument struct {
	ExportTimestamp string                       `json:"exportTimestamp"`
	Analytics       analytics.Analytics          `json:"analytics"`
	AllInteractions []telemetry.InteractionEvent `json:"allInteractions"`
}

// Clearer is any durable namespace that can drop its content.
type Clearer interface {
	Clear() error
}

// Service builds export artifacts and performs the destructive reset.
type Service struct {
	Log    Clearer
	Legacy Clearer
	Logger *zap.Logger

	now func() time.Time
}

// NewService wires the service to the durable namespaces it may clear.
func NewService(log, legacy Clearer, logger *zap.Logger) *Service {
	return &Service{Log: log, Legacy: legacy, Logger: logger, now: time.Now}
}

// ExportSession serializes the live session's events plus derived analytics.
func (s *Service) ExportSession(sessionID string, events []telemetry.InteractionEvent, a analytics.Analytics) (Artifact, error) {
	now := s.now()

	doc := SessionDocument{
		ExportTimestamp: now.UTC().Format(telemetry.EventTimeLayout),
		SessionID:       sessionID,
		Analytics:       a,
		Interactions:    events,
	}
	if len(events) > 0 {
		doc.StartTime = events[0].Timestamp
		doc.UserAgent = events[len(events)-1].Context.UserAgent
		doc.ScreenResolution = events[len(events)-1].Context.ScreenResolution
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("ExportSession: %w", err)
	}

	return Artifact{
		Filename: fmt.Sprintf("beacon_session_%s.json", sessionID),
		Body:     body,
	}, nil
}

// ExportAll serializes the entire persisted store plus derived analytics.
func (s *Service) ExportAll(persisted []telemetry.InteractionEvent, a analytics.Analytics) (Artifact, error) {
	now := s.now()

	doc := FullDocument{
		ExportTimestamp: now.UTC().Format(telemetry.EventTimeLayout),
		Analytics:       a,
		AllInteractions: persisted,
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("ExportAll: %w", err)
	}

	return Artifact{
		Filename: fmt.Sprintf("beacon_full_%s.json", now.UTC().Format("2006-01-02")),
		Body:     body,
	}, nil
}

// ClearAll removes all durable content across both namespaces. The caller is
// responsible for reinitializing the live recorder afterwards; there is no
// partial-clear mode.
func (s *Service) ClearAll(confirm string) error {
	if confirm != ConfirmPhrase {
		return ErrNotConfirmed
	}

	if s.Log != nil {
		if err := s.Log.Clear(); err != nil {
			return fmt.Errorf("ClearAll: %w", err)
		}
	}
	if s.Legacy != nil {
		if err := s.Legacy.Clear(); err != nil {
			return fmt.Errorf("ClearAll: %w", err)
		}
	}

	if s.Logger != nil {
		s.Logger.Info("all interaction data cleared")
	}
	return nil
}
