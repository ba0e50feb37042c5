package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/analytics"
	"github.com/clarity-ai/beacon/internal/export"
)

// handleExportSession downloads the live session's events plus analytics.
func (d *Dependencies) handleExportSession(w http.ResponseWriter, _ *http.Request) {
	rec := d.Recorder()
	events := rec.Events()

	artifact, err := d.Export.ExportSession(rec.SessionID(), events, analytics.Compute(events))
	if err != nil {
		d.Logger.Error("session export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Export failed"})
		return
	}
	writeArtifact(w, artifact)
}

// handleExportAll downloads the entire persisted store plus analytics derived
// from it.
func (d *Dependencies) handleExportAll(w http.ResponseWriter, _ *http.Request) {
	persisted := d.Log.ReadAll()

	artifact, err := d.Export.ExportAll(persisted, analytics.Compute(persisted))
	if err != nil {
		d.Logger.Error("full export failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Export failed"})
		return
	}
	writeArtifact(w, artifact)
}

// handleReset clears all durable content and replaces the live session with a
// fresh one. Destructive and irreversible: the exact confirmation phrase is
// required, with no partial-clear mode.
func (d *Dependencies) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	if err := d.Export.ClearAll(req.Confirm); err != nil {
		if errors.Is(err, export.ErrNotConfirmed) {
			writeJSON(w, http.StatusBadRequest, ErrorResp{
				Detail: "Confirmation required: set confirm to \"" + export.ConfirmPhrase + "\"",
			})
			return
		}
		d.Logger.Error("clear all failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Clear failed"})
		return
	}

	// The old session is discarded without a session_end, matching an abrupt
	// teardown; the replacement starts with its own session_start.
	if d.NewSession != nil {
		rec, hov := d.NewSession()
		d.SetSession(rec, hov)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "cleared",
		"sessionId": d.Recorder().SessionID(),
	})
}

func writeArtifact(w http.ResponseWriter, artifact export.Artifact) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+artifact.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}
