package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HoverTicket is the single-use handle returned by BeginHover. It holds the
// hover start time and element identity; EndHover consumes it exactly once.
type HoverTicket struct {
	ID                string
	ElementID         string
	VisualizationType string
	StartedAt         time.Time

	consumed atomic.Bool
}

// HoverRegistry pairs hover starts with hover ends, computing dwell time and
// forwarding the measurement to the recorder as a visualization_hover event.
//
// At most one timer is open per element ID. Starting a hover for an element
// that already has an open timer replaces it (last start wins); the replaced
// ticket can still be ended but records its own, older start time.
type HoverRegistry struct {
	mu   sync.Mutex
	open map[string]*HoverTicket

	recorder *Recorder
	now      func() time.Time
}

// NewHoverRegistry creates a registry that records through rec.
func NewHoverRegistry(rec *Recorder) *HoverRegistry {
	return &HoverRegistry{
		open:     make(map[string]*HoverTicket),
		recorder: rec,
		now:      time.Now,
	}
}

// BeginHover opens a dwell timer for the element and returns its ticket.
func (h *HoverRegistry) BeginHover(elementID, visualizationType string) *HoverTicket {
	ticket := &HoverTicket{
		ID:                uuid.NewString(),
		ElementID:         elementID,
		VisualizationType: visualizationType,
		StartedAt:         h.now(),
	}

	h.mu.Lock()
	h.open[elementID] = ticket
	h.mu.Unlock()

	return ticket
}

// EndHover consumes the ticket and records one visualization_hover event with
// the elapsed dwell time. A nil or already-consumed ticket is a no-op.
func (h *HoverRegistry) EndHover(ticket *HoverTicket) {
	if ticket == nil || !ticket.consumed.CompareAndSwap(false, true) {
		return
	}

	elapsed := h.now().Sub(ticket.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	h.mu.Lock()
	if h.open[ticket.ElementID] == ticket {
		delete(h.open, ticket.ElementID)
	}
	h.mu.Unlock()

	h.recorder.Record(TypeVisualizationHover, &VisualizationHoverData{
		ElementID:         ticket.ElementID,
		VisualizationType: ticket.VisualizationType,
		HoverDurationMs:   elapsed.Milliseconds(),
	})
}

// OpenCount returns the number of elements with an open dwell timer.
func (h *HoverRegistry) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.open)
}
