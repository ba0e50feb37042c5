package telemetry

import (
	"testing"
	"time"
)

func scrollEvents(rec *Recorder) []InteractionEvent {
	var out []InteractionEvent
	for _, ev := range rec.Events() {
		if ev.Type == TypeScrollEvent {
			out = append(out, ev)
		}
	}
	return out
}

func TestScrollDebouncer_CoalescesBurst(t *testing.T) {
	rec := NewRecorder(NewAmbient(), RecorderOptions{})
	deb := NewScrollDebouncer(rec, 30*time.Millisecond)
	defer deb.Stop()

	for i := 1; i <= 10; i++ {
		deb.Observe(float64(i * 100))
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	events := scrollEvents(rec)
	if len(events) != 1 {
		t.Fatalf("expected 1 coalesced scroll event, got %d", len(events))
	}
	data := events[0].Data.(*ScrollData)
	if data.ScrollPosition != 1000 {
		t.Errorf("expected trailing position 1000, got %.0f", data.ScrollPosition)
	}
	if data.ScrollDirection != "down" {
		t.Errorf("expected down, got %s", data.ScrollDirection)
	}
}

func TestScrollDebouncer_SeparateBurstsRecordSeparately(t *testing.T) {
	rec := NewRecorder(NewAmbient(), RecorderOptions{})
	deb := NewScrollDebouncer(rec, 20*time.Millisecond)
	defer deb.Stop()

	deb.Observe(500)
	time.Sleep(80 * time.Millisecond)
	deb.Observe(200)
	time.Sleep(80 * time.Millisecond)

	events := scrollEvents(rec)
	if len(events) != 2 {
		t.Fatalf("expected 2 scroll events, got %d", len(events))
	}
	if d := events[1].Data.(*ScrollData).ScrollDirection; d != "up" {
		t.Errorf("expected up for second burst, got %s", d)
	}
}

func TestScrollDebouncer_FlushRecordsPendingImmediately(t *testing.T) {
	rec := NewRecorder(NewAmbient(), RecorderOptions{})
	deb := NewScrollDebouncer(rec, 10*time.Second)

	deb.Observe(42)
	deb.Flush()

	events := scrollEvents(rec)
	if len(events) != 1 {
		t.Fatalf("expected 1 scroll event after flush, got %d", len(events))
	}

	// Flush with nothing pending records nothing more.
	deb.Flush()
	if n := len(scrollEvents(rec)); n != 1 {
		t.Errorf("expected still 1 scroll event, got %d", n)
	}
}

func TestScrollDebouncer_StopDropsPending(t *testing.T) {
	rec := NewRecorder(NewAmbient(), RecorderOptions{})
	deb := NewScrollDebouncer(rec, 20*time.Millisecond)

	deb.Observe(42)
	deb.Stop()
	time.Sleep(60 * time.Millisecond)

	if n := len(scrollEvents(rec)); n != 0 {
		t.Errorf("expected no scroll events after stop, got %d", n)
	}
}
