package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/telemetry"
)

func newTestLogStore(t *testing.T) (*LogStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLogStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLogStore: %v", err)
	}
	return store, dir
}

func testEvent(id string, typ telemetry.InteractionType, data telemetry.InteractionData) telemetry.InteractionEvent {
	return telemetry.InteractionEvent{
		ID:        id,
		SessionID: "session_test",
		Timestamp: "2026-08-27T10:00:00.000Z",
		Type:      typ,
		Data:      data,
	}
}

func TestLogStore_ReadAllMissingFileIsEmpty(t *testing.T) {
	store, _ := newTestLogStore(t)

	if events := store.ReadAll(); len(events) != 0 {
		t.Errorf("expected empty history, got %d events", len(events))
	}
}

func TestLogStore_AppendReadAllRoundTrip(t *testing.T) {
	store, _ := newTestLogStore(t)

	want := []telemetry.InteractionEvent{
		testEvent("1_a", telemetry.TypeTabSwitch, &telemetry.TabSwitchData{FromTab: "insight", ToTab: "reasoning"}),
		testEvent("2_b", telemetry.TypeScrollEvent, &telemetry.ScrollData{ScrollPosition: 120, ScrollDirection: "down"}),
		testEvent("3_c", telemetry.TypeErrorOccurrence, &telemetry.ErrorData{ErrorMessage: "boom", ErrorType: "general"}),
	}
	for _, ev := range want {
		if err := store.Append(ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got := store.ReadAll()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLogStore_CorruptContentTreatedAsEmpty(t *testing.T) {
	store, dir := newTestLogStore(t)

	path := filepath.Join(dir, KeyInteractions+".json")
	if err := os.WriteFile(path, []byte("not valid json {{"), 0o644); err != nil {
		t.Fatal(err)
	}

	if events := store.ReadAll(); len(events) != 0 {
		t.Errorf("expected empty history for corrupt file, got %d events", len(events))
	}

	// The next append starts a fresh history over the corrupt content.
	if err := store.Append(testEvent("1_a", telemetry.TypePageFocus, &telemetry.MarkerData{})); err != nil {
		t.Fatalf("Append over corrupt file: %v", err)
	}
	if events := store.ReadAll(); len(events) != 1 {
		t.Errorf("expected 1 event after recovery, got %d", len(events))
	}
}

func TestLogStore_Clear(t *testing.T) {
	store, _ := newTestLogStore(t)

	if err := store.Append(testEvent("1_a", telemetry.TypePageFocus, &telemetry.MarkerData{})); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if events := store.ReadAll(); len(events) != 0 {
		t.Errorf("expected empty history after clear, got %d events", len(events))
	}

	// Clearing an already-empty namespace is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on missing file: %v", err)
	}
}

func TestLegacyStore_RoundTripAndIndependence(t *testing.T) {
	dir := t.TempDir()
	logStore, err := NewLogStore(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	legacy, err := NewLegacyStore(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := logStore.Append(testEvent("1_a", telemetry.TypePageFocus, &telemetry.MarkerData{})); err != nil {
		t.Fatal(err)
	}
	record := LegacyRecord{
		EventType: "page_view",
		Timestamp: "2026-08-27T10:00:00.000Z",
		Metadata:  map[string]any{"path": "/dashboard"},
	}
	if err := legacy.Append(record); err != nil {
		t.Fatal(err)
	}

	got := legacy.ReadAll()
	if len(got) != 1 || !reflect.DeepEqual(got[0], record) {
		t.Errorf("legacy round trip mismatch: %+v", got)
	}

	// Clearing one namespace leaves the other untouched.
	if err := legacy.Clear(); err != nil {
		t.Fatal(err)
	}
	if n := len(legacy.ReadAll()); n != 0 {
		t.Errorf("expected legacy empty, got %d", n)
	}
	if n := len(logStore.ReadAll()); n != 1 {
		t.Errorf("expected interaction log untouched, got %d", n)
	}
}
