package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/analytics"
	"github.com/clarity-ai/beacon/internal/chread"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

func (d *Dependencies) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	rec := d.Recorder()
	writeJSON(w, http.StatusOK, SessionResp{
		SessionID:  rec.SessionID(),
		StartTime:  rec.SessionStart().UTC().Format(telemetry.EventTimeLayout),
		EventCount: len(rec.Events()),
	})
}

// handleSessionEvents returns the live session log, optionally truncated to
// the most recent N events.
func (d *Dependencies) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	events := d.Recorder().Events()

	if limit := queryInt(r.URL.Query(), "limit", 0); limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	writeJSON(w, http.StatusOK, events)
}

// handleGetAnalytics recomputes analytics over the live session log. The
// aggregation is a pure projection, so every response reflects the log as of
// this request.
func (d *Dependencies) handleGetAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analytics.Compute(d.Recorder().Events()))
}

func (d *Dependencies) handleGlobalAnalytics(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	days := queryInt(r.URL.Query(), "days", 7)
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	result, err := d.Reader.GetAnalytics(r.Context(), days)
	if err != nil {
		d.Logger.Error("failed to get global analytics", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get analytics"})
		return
	}

	writeJSON(w, http.StatusOK, toGlobalAnalyticsResp(result))
}

func (d *Dependencies) handleArchiveEvents(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	q := r.URL.Query()
	params := chread.ListEventsParams{
		Page:     queryInt(q, "page", 1),
		PageSize: queryInt(q, "page_size", 50),
	}
	if params.PageSize > 200 {
		params.PageSize = 200
	}
	if params.Page < 1 {
		params.Page = 1
	}

	if v := q.Get("session_id"); v != "" {
		params.SessionID = &v
	}
	if v := q.Get("type"); v != "" {
		params.Type = &v
	}
	if v := q.Get("tab"); v != "" {
		params.Tab = &v
	}
	if v := q.Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartTime = &t
		}
	}
	if v := q.Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndTime = &t
		}
	}

	events, total, err := d.Reader.ListEvents(r.Context(), params)
	if err != nil {
		d.Logger.Error("failed to list archived events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list events"})
		return
	}

	resp := ArchiveListResp{
		Events:   make([]ArchiveEventResp, 0, len(events)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, e := range events {
		resp.Events = append(resp.Events, archiveEventToResp(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(q interface{ Get(string) string }, key string, defaultVal int) int {
	v := q.Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
