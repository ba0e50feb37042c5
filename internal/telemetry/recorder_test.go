package telemetry

import (
	"strings"
	"testing"
	"time"
)

// fixedClock returns a controllable time source starting at start.
func fixedClock(start time.Time) (func() time.Time, func(d time.Duration)) {
	current := start
	now := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return now, advance
}

type captureDurable struct {
	events []InteractionEvent
}

func (c *captureDurable) Append(event InteractionEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestRecorder(t *testing.T) (*Recorder, *captureDurable, func(time.Duration)) {
	t.Helper()
	now, advance := fixedClock(time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC))
	durable := &captureDurable{}
	rec := newRecorderAt(NewAmbient(), RecorderOptions{Durable: durable}, now)
	return rec, durable, advance
}

func TestNewRecorder_RecordsSessionStart(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event after init, got %d", len(events))
	}
	if events[0].Type != TypeSessionStart {
		t.Errorf("expected session_start, got %s", events[0].Type)
	}
	if events[0].SessionID != rec.SessionID() {
		t.Errorf("session ID mismatch: %s vs %s", events[0].SessionID, rec.SessionID())
	}
	if !strings.HasPrefix(rec.SessionID(), "session_") {
		t.Errorf("unexpected session ID format: %s", rec.SessionID())
	}
}

func TestRecord_DistinctIDsWithinSameMillisecond(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	// The clock is frozen, so every event lands in the same millisecond.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := rec.RecordPageFocus()
		if seen[ev.ID] {
			t.Fatalf("duplicate event ID: %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestRecord_ForwardsToDurableLog(t *testing.T) {
	rec, durable, _ := newTestRecorder(t)

	rec.RecordTabSwitch("insight", "reasoning")
	rec.RecordHistoryClick("user_query")

	// session_start + two explicit records
	if len(durable.events) != 3 {
		t.Fatalf("expected 3 durable events, got %d", len(durable.events))
	}
	if durable.events[1].Type != TypeTabSwitch {
		t.Errorf("expected tab_switch, got %s", durable.events[1].Type)
	}
}

func TestRecord_TimestampsNonDecreasing(t *testing.T) {
	rec, _, advance := newTestRecorder(t)

	rec.RecordPageFocus()
	advance(50 * time.Millisecond)
	rec.RecordPageBlur()
	advance(10 * time.Millisecond)
	rec.RecordPageFocus()

	events := rec.Events()
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Errorf("timestamps decreased at %d: %s < %s",
				i, events[i].Timestamp, events[i-1].Timestamp)
		}
	}
}

func TestRecordChatMessage(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	ev := rec.RecordChatMessage("why was route B rejected?", 1200*time.Millisecond)
	data, ok := ev.Data.(*ChatMessageData)
	if !ok {
		t.Fatalf("expected *ChatMessageData, got %T", ev.Data)
	}
	if data.MessageLength != len("why was route B rejected?") {
		t.Errorf("unexpected message length: %d", data.MessageLength)
	}
	if data.ResponseTimeMs == nil || *data.ResponseTimeMs != 1200 {
		t.Errorf("unexpected response time: %v", data.ResponseTimeMs)
	}

	ev = rec.RecordChatMessage("hi", 0)
	data = ev.Data.(*ChatMessageData)
	if data.ResponseTimeMs != nil {
		t.Errorf("expected no response time, got %d", *data.ResponseTimeMs)
	}
}

func TestRecordError_DefaultsType(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	ev := rec.RecordError("render failed", "")
	if data := ev.Data.(*ErrorData); data.ErrorType != "general" {
		t.Errorf("expected general, got %s", data.ErrorType)
	}

	ev = rec.RecordError("timeout", "network")
	if data := ev.Data.(*ErrorData); data.ErrorType != "network" {
		t.Errorf("expected network, got %s", data.ErrorType)
	}
}

func TestRecordScroll_Direction(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	cases := []struct {
		position float64
		want     string
	}{
		{100, "down"}, // first scroll compares against 0
		{250, "down"},
		{250, "up"}, // equal position is not strictly greater
		{80, "up"},
		{81, "down"},
	}

	for i, tc := range cases {
		ev := rec.RecordScroll(tc.position)
		data := ev.Data.(*ScrollData)
		if data.ScrollDirection != tc.want {
			t.Errorf("case %d: position %.0f: expected %s, got %s",
				i, tc.position, tc.want, data.ScrollDirection)
		}
		if data.ScrollPosition != tc.position {
			t.Errorf("case %d: position not echoed: %v", i, data.ScrollPosition)
		}
	}
}

func TestRecordScroll_FirstEventNegativePositionIsUp(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	ev := rec.RecordScroll(-5)
	if data := ev.Data.(*ScrollData); data.ScrollDirection != "up" {
		t.Errorf("expected up for position below initial reference, got %s", data.ScrollDirection)
	}
}

func TestRecord_ContextSnapshotEmbedded(t *testing.T) {
	now, _ := fixedClock(time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC))
	ambient := NewAmbient()
	ambient.SetTab("reasoning")
	ambient.SetChatHistoryLength(4)
	ambient.SetClient("test-agent/1.0", "1920x1080")
	rec := newRecorderAt(ambient, RecorderOptions{}, now)

	ev := rec.RecordPageFocus()
	if ev.Context.CurrentTab != "reasoning" {
		t.Errorf("unexpected tab: %s", ev.Context.CurrentTab)
	}
	if ev.Context.ChatHistoryLength != 4 {
		t.Errorf("unexpected chat length: %d", ev.Context.ChatHistoryLength)
	}
	if ev.Context.UserAgent != "test-agent/1.0" {
		t.Errorf("unexpected user agent: %s", ev.Context.UserAgent)
	}
	if ev.Context.ScreenResolution != "1920x1080" {
		t.Errorf("unexpected resolution: %s", ev.Context.ScreenResolution)
	}
}

func TestSnapshot_UnsetAmbientDegradesToEmpty(t *testing.T) {
	provider := NewSnapshotProvider(NewAmbient(), time.Now())

	ctx := provider.Snapshot()
	if ctx.CurrentTab != "" || ctx.UserAgent != "" || ctx.ScreenResolution != "" {
		t.Errorf("expected empty placeholders, got %+v", ctx)
	}
	if ctx.Timestamp == "" {
		t.Error("expected a capture timestamp")
	}
}

func TestClose_RecordsSessionEndOnce(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	rec.Close()
	rec.Close()

	ends := 0
	for _, ev := range rec.Events() {
		if ev.Type == TypeSessionEnd {
			ends++
		}
	}
	if ends != 1 {
		t.Errorf("expected exactly 1 session_end, got %d", ends)
	}
}

func TestEvents_TypeCountsSumToTotal(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	rec.RecordTabSwitch("insight", "reasoning")
	rec.RecordTabSwitch("reasoning", "projection")
	rec.RecordChatMessage("hello", 0)
	rec.RecordSuggestedPromptClick("what changed?")
	rec.RecordVisualizationClick("node_a", "dag")
	rec.RecordError("boom", "")
	rec.RecordScroll(10)

	events := rec.Events()
	counts := make(map[InteractionType]int)
	for _, ev := range events {
		counts[ev.Type]++
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != len(events) {
		t.Errorf("type counts sum %d != total %d", sum, len(events))
	}
}
