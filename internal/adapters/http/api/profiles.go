package api

import (
	"context"
	"net/http"

	service "github.com/okian/formcoach/internal/app"
	"github.com/okian/formcoach/internal/domain/model"
)

// ProfileDependencies is the slice of the service the profile routes need.
type ProfileDependencies interface {
	UpsertProfile(ctx context.Context, req service.ProfileRequest) (string, error)
	GetProfile(ctx context.Context, id string) (model.AthleteProfile, error)
}

// ProfilesHandler handles athlete profile requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// UpsertResponse acknowledges a stored profile.
type UpsertResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HandleUpsert handles POST /v1/profiles requests.
func (h *ProfilesHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileRequest
	if err := decodeJSON(w, r, "api.upsert_profile", &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.deps.UpsertProfile(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpsertResponse{ID: id, Message: "profile saved"})
}

// HandleGet handles GET /v1/profiles/{id} requests.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.deps.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
