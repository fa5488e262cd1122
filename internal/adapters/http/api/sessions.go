package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/formcoach/internal/domain/apperr"
	"github.com/okian/formcoach/internal/domain/model"
)

// SessionDependencies is the slice of the service the session routes need.
type SessionDependencies interface {
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListSessions(ctx context.Context, athleteID string, limit int) ([]model.Session, error)
}

// SessionsHandler handles session history requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// SessionList is the body of GET /v1/sessions.
type SessionList struct {
	Sessions []model.Session `json:"sessions"`
	Count    int             `json:"count"`
}

// HandleList handles GET /v1/sessions?athleteId=&limit= requests.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperr.Wrap("api.list_sessions", apperr.ErrValidation, errors.New("limit must be an integer")))
			return
		}
		limit = n
	}

	sessions, err := h.deps.ListSessions(r.Context(), q.Get("athleteId"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, SessionList{Sessions: sessions, Count: len(sessions)})
}

// HandleGet handles GET /v1/sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.deps.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
