package api

import (
	"net/http"
	"time"

	"github.com/clarity-ai/beacon/internal/storage"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

// captureClient refreshes the ambient client identity from request headers so
// context snapshots carry the emitting client's identity and display size.
func (d *Dependencies) captureClient(r *http.Request) {
	if d.Ambient != nil {
		d.Ambient.SetClient(r.UserAgent(), r.Header.Get("X-Screen-Resolution"))
	}
}

// handleRecord is the generic emission endpoint: {type, data}. The payload is
// accepted verbatim; only the type tag must be one of the known set.
func (d *Dependencies) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	t := telemetry.InteractionType(req.Type)
	if !t.Valid() {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Unknown interaction type: " + req.Type})
		return
	}

	data, err := telemetry.DecodeData(t, req.Data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid data payload"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().Record(t, data)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleTabSwitch(w http.ResponseWriter, r *http.Request) {
	var req TabSwitchReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	if d.Ambient != nil && req.ToTab != "" {
		d.Ambient.SetTab(req.ToTab)
	}
	event := d.Recorder().RecordTabSwitch(req.FromTab, req.ToTab)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	var responseTime time.Duration
	if req.ResponseTimeMs != nil {
		responseTime = time.Duration(*req.ResponseTimeMs) * time.Millisecond
	}
	event := d.Recorder().RecordChatMessage(req.Message, responseTime)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handlePromptClick(w http.ResponseWriter, r *http.Request) {
	var req PromptClickReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().RecordSuggestedPromptClick(req.SuggestedPrompt)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleHistoryClick(w http.ResponseWriter, r *http.Request) {
	var req HistoryClickReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().RecordHistoryClick(req.Value)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleVizClick(w http.ResponseWriter, r *http.Request) {
	var req VizClickReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().RecordVisualizationClick(req.ElementID, req.VisualizationType)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleCOA(w http.ResponseWriter, r *http.Request) {
	var req COAReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	var event telemetry.InteractionEvent
	if req.Interaction == "hover" {
		event = d.Recorder().RecordCOACardHover(req.COAID, req.COAName)
	} else {
		event = d.Recorder().RecordCOACardClick(req.COAID, req.COAName)
	}
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleError(w http.ResponseWriter, r *http.Request) {
	var req ErrorReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().RecordError(req.ErrorMessage, req.ErrorType)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	event := d.Recorder().RecordScroll(req.Position)
	writeJSON(w, http.StatusCreated, event)
}

func (d *Dependencies) handleFocus(w http.ResponseWriter, r *http.Request) {
	d.captureClient(r)
	writeJSON(w, http.StatusCreated, d.Recorder().RecordPageFocus())
}

func (d *Dependencies) handleBlur(w http.ResponseWriter, r *http.Request) {
	d.captureClient(r)
	writeJSON(w, http.StatusCreated, d.Recorder().RecordPageBlur())
}

// handleBeginHover opens a dwell timer and hands back its single-use ticket.
func (d *Dependencies) handleBeginHover(w http.ResponseWriter, r *http.Request) {
	var req HoverBeginReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	ticket := d.Hovers().BeginHover(req.ElementID, req.VisualizationType)
	d.tickets.Store(ticket.ID, ticket)

	writeJSON(w, http.StatusCreated, HoverBeginResp{
		TicketID:  ticket.ID,
		ElementID: ticket.ElementID,
	})
}

// handleEndHover consumes a ticket. Unknown or already-consumed tickets are a
// silent no-op: the hover protocol absorbs violations rather than erroring.
func (d *Dependencies) handleEndHover(w http.ResponseWriter, r *http.Request) {
	ticketID := r.PathValue("ticket_id")

	v, ok := d.tickets.LoadAndDelete(ticketID)
	if ok {
		d.Hovers().EndHover(v.(*telemetry.HoverTicket))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleContext updates the ambient state snapshotted into future events.
func (d *Dependencies) handleContext(w http.ResponseWriter, r *http.Request) {
	var req ContextReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	d.captureClient(r)
	if d.Ambient != nil {
		if req.CurrentTab != nil {
			d.Ambient.SetTab(*req.CurrentTab)
		}
		if req.ChatHistoryLength != nil {
			d.Ambient.SetChatHistoryLength(*req.ChatHistoryLength)
		}
		if req.CurrentExplanation != nil {
			d.Ambient.SetExplanation(*req.CurrentExplanation)
		}
		if req.ScreenResolution != nil {
			d.Ambient.SetClient("", *req.ScreenResolution)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLegacyLog appends to the lightweight event log. This path is fully
// independent of the interaction log; the two are never merged.
func (d *Dependencies) handleLegacyLog(w http.ResponseWriter, r *http.Request) {
	var req LegacyLogReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.EventType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "eventType is required"})
		return
	}

	record := storage.LegacyRecord{
		EventType: req.EventType,
		Timestamp: time.Now().UTC().Format(telemetry.EventTimeLayout),
		Metadata:  req.Metadata,
	}
	if err := d.Legacy.Append(record); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to append record"})
		return
	}
	writeJSON(w, http.StatusCreated, record)
}
