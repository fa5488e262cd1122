package api

import (
	"net/http"

	"github.com/okian/formcoach/internal/domain/sport"
)

// SportsDependencies exposes the sport registry.
type SportsDependencies interface {
	Sports() []sport.Pattern
}

// SportsHandler lists registered sport patterns.
type SportsHandler struct {
	deps SportsDependencies
}

// NewSportsHandler creates a new sports handler.
func NewSportsHandler(deps SportsDependencies) *SportsHandler {
	return &SportsHandler{deps: deps}
}

// HandleList handles GET /v1/sports requests.
func (h *SportsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	patterns := h.deps.Sports()
	if patterns == nil {
		patterns = []sport.Pattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sports": patterns})
}
