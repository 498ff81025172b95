package api

import (
	"net/http"
)

type CompareAnalysesRequest struct {
	AnalysisID1 int64 `json:"analysisId1" validate:"required,gt=0"`
	AnalysisID2 int64 `json:"analysisId2" validate:"required,gt=0"`
}

func (h *APIHandler) ProgressMetricsHandler(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Progress.Metrics(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

func (h *APIHandler) ProgressTimelineHandler(w http.ResponseWriter, r *http.Request) {
	tl, err := h.svc.Progress.Timeline(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tl)
}

func (h *APIHandler) ProgressReportHandler(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Progress.Report(r.Context(), sessionUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

// CompareAnalysesHandler always compares on behalf of the signed-in user;
// a userId in the body is ignored.
func (h *APIHandler) CompareAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	var req CompareAnalysesRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Progress.CompareAnalyses(r.Context(), sessionUser(r), req.AnalysisID1, req.AnalysisID2)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
