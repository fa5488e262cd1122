package api

import (
	"context"
	"net/http"

	service "github.com/okian/formcoach/internal/app"
)

// AnalysisDependencies is the slice of the service the analyze route needs.
type AnalysisDependencies interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (service.AnalysisResponse, error)
}

// AnalyzeHandler handles analysis submissions.
type AnalyzeHandler struct {
	deps AnalysisDependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalysisDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// HandleAnalyze handles POST /v1/analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := decodeJSON(w, r, "api.analyze", &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.deps.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
