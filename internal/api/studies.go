package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/clarity-ai/beacon/internal/store"
)

func (d *Dependencies) handleCreateStudy(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Postgres not configured"})
		return
	}

	var req CreateStudyReq
	if err := readJSON(r, &req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name is required"})
		return
	}

	st, apiKey, err := d.Store.CreateStudy(r.Context(), req.Name, req.Notes)
	if err != nil {
		d.Logger.Error("failed to create study", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create study"})
		return
	}

	resp := studyToResp(st)
	resp.APIKey = apiKey // shown once
	writeJSON(w, http.StatusCreated, resp)
}

func (d *Dependencies) handleListStudies(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Postgres not configured"})
		return
	}

	studies, err := d.Store.ListStudies(r.Context())
	if err != nil {
		d.Logger.Error("failed to list studies", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list studies"})
		return
	}

	resp := make([]StudyResp, 0, len(studies))
	for i := range studies {
		resp = append(resp, studyToResp(&studies[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Postgres not configured"})
		return
	}

	st, err := d.Store.GetStudy(r.Context(), r.PathValue("study_id"))
	if err != nil {
		d.Logger.Error("failed to get study", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get study"})
		return
	}
	if st == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Study not found"})
		return
	}
	writeJSON(w, http.StatusOK, studyToResp(st))
}

func (d *Dependencies) handleDeleteStudy(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Postgres not configured"})
		return
	}

	deleted, err := d.Store.DeleteStudy(r.Context(), r.PathValue("study_id"))
	if err != nil {
		d.Logger.Error("failed to delete study", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete study"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Study not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dependencies) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Postgres not configured"})
		return
	}

	st, apiKey, err := d.Store.RotateKey(r.Context(), r.PathValue("study_id"))
	if err != nil {
		d.Logger.Error("failed to rotate key", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to rotate key"})
		return
	}
	if st == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Study not found"})
		return
	}

	resp := studyToResp(st)
	resp.APIKey = apiKey // shown once
	writeJSON(w, http.StatusOK, resp)
}

func studyToResp(st *store.Study) StudyResp {
	return StudyResp{
		ID:           st.ID,
		Name:         st.Name,
		Notes:        st.Notes,
		APIKeyPrefix: st.APIKeyPrefix,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}
}
