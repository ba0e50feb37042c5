package export

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/analytics"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

type fakeClearer struct {
	cleared int
	err     error
}

func (c *fakeClearer) Clear() error {
	if c.err != nil {
		return c.err
	}
	c.cleared++
	return nil
}

func newTestService() *Service {
	s := NewService(&fakeClearer{}, &fakeClearer{}, zap.NewNop())
	s.now = func() time.Time {
		return time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	}
	return s
}

func sampleEvents() []telemetry.InteractionEvent {
	ctx := telemetry.InteractionContext{
		CurrentTab:       "reasoning",
		UserAgent:        "test-agent/1.0",
		ScreenResolution: "1920x1080",
		Timestamp:        "2026-08-27T10:00:05.000Z",
	}
	return []telemetry.InteractionEvent{
		{
			ID:        "1_a",
			SessionID: "session_1756288800000_abc",
			Timestamp: "2026-08-27T10:00:00.000Z",
			Type:      telemetry.TypeSessionStart,
			Data:      &telemetry.MarkerData{},
			Context:   ctx,
		},
		{
			ID:        "2_b",
			SessionID: "session_1756288800000_abc",
			Timestamp: "2026-08-27T10:00:05.000Z",
			Type:      telemetry.TypeTabSwitch,
			Data:      &telemetry.TabSwitchData{FromTab: "insight", ToTab: "reasoning"},
			Context:   ctx,
		},
	}
}

func TestExportSession_DocumentRoundTrip(t *testing.T) {
	s := newTestService()
	events := sampleEvents()

	artifact, err := s.ExportSession("session_1756288800000_abc", events, analytics.Compute(events))
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}

	if artifact.Filename != "beacon_session_session_1756288800000_abc.json" {
		t.Errorf("unexpected filename: %s", artifact.Filename)
	}

	var doc SessionDocument
	if err := json.Unmarshal(artifact.Body, &doc); err != nil {
		t.Fatalf("artifact body not valid JSON: %v", err)
	}
	if doc.SessionID != "session_1756288800000_abc" {
		t.Errorf("unexpected sessionId: %s", doc.SessionID)
	}
	if doc.ExportTimestamp != "2026-08-27T10:30:00.000Z" {
		t.Errorf("unexpected exportTimestamp: %s", doc.ExportTimestamp)
	}
	if doc.StartTime != events[0].Timestamp {
		t.Errorf("unexpected startTime: %s", doc.StartTime)
	}
	if doc.UserAgent != "test-agent/1.0" || doc.ScreenResolution != "1920x1080" {
		t.Errorf("client fields not carried: %+v", doc)
	}
	// Every recorded event survives the round trip unchanged.
	if !reflect.DeepEqual(doc.Interactions, events) {
		t.Errorf("interactions mismatch:\n got %+v\nwant %+v", doc.Interactions, events)
	}
	if doc.Analytics.TotalInteractions != len(events) {
		t.Errorf("analytics not embedded: %+v", doc.Analytics)
	}
}

func TestExportSession_EmptyEventsOmitsClientFields(t *testing.T) {
	s := newTestService()

	artifact, err := s.ExportSession("session_x", nil, analytics.Compute(nil))
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}

	var doc SessionDocument
	if err := json.Unmarshal(artifact.Body, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.StartTime != "" || doc.UserAgent != "" {
		t.Errorf("expected empty client fields, got %+v", doc)
	}
}

func TestExportAll_DatedFilenameAndDocument(t *testing.T) {
	s := newTestService()
	events := sampleEvents()

	artifact, err := s.ExportAll(events, analytics.Compute(events))
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	if artifact.Filename != "beacon_full_2026-08-27.json" {
		t.Errorf("unexpected filename: %s", artifact.Filename)
	}

	var doc FullDocument
	if err := json.Unmarshal(artifact.Body, &doc); err != nil {
		t.Fatalf("artifact body not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(doc.AllInteractions, events) {
		t.Errorf("allInteractions mismatch")
	}

	// Full exports span sessions and must not carry a sessionId field.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(artifact.Body, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["sessionId"]; ok {
		t.Error("full export must not include sessionId")
	}
}

func TestClearAll_RequiresExactPhrase(t *testing.T) {
	s := newTestService()
	logStore := s.Log.(*fakeClearer)

	for _, phrase := range []string{"", "delete all data", "DELETE ALL INTERACTION DATA", "delete all interaction data "} {
		if err := s.ClearAll(phrase); !errors.Is(err, ErrNotConfirmed) {
			t.Errorf("phrase %q: expected ErrNotConfirmed, got %v", phrase, err)
		}
	}
	if logStore.cleared != 0 {
		t.Errorf("nothing should be cleared without confirmation, got %d", logStore.cleared)
	}
}

func TestClearAll_ClearsBothNamespaces(t *testing.T) {
	s := newTestService()

	if err := s.ClearAll(ConfirmPhrase); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if s.Log.(*fakeClearer).cleared != 1 {
		t.Error("interaction namespace not cleared")
	}
	if s.Legacy.(*fakeClearer).cleared != 1 {
		t.Error("legacy namespace not cleared")
	}
}

func TestClearAll_PropagatesClearError(t *testing.T) {
	s := newTestService()
	s.Log.(*fakeClearer).err = errors.New("disk gone")

	if err := s.ClearAll(ConfirmPhrase); err == nil {
		t.Error("expected error when a namespace fails to clear")
	}
}
