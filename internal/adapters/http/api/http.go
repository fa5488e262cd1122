// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/formcoach/internal/domain/apperr"
)

// Request body limits.
const (
	maxJSONBody      = 8 << 20
	defaultMaxUpload = 100 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AnalysisDependencies
	ProfileDependencies
	SessionDependencies
	SportsDependencies
	UploadDependencies
	HealthDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analyzeHandler  *AnalyzeHandler
	profilesHandler *ProfilesHandler
	sessionsHandler *SessionsHandler
	sportsHandler   *SportsHandler
	uploadsHandler  *UploadsHandler

	analyzeLimiter *rate.Limiter
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAnalyzeRateLimit bounds POST /v1/analyze with a token bucket. A
// non-positive rps leaves the endpoint unlimited.
func WithAnalyzeRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.analyzeLimiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxUploadBytes caps the multipart body accepted by POST /v1/uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.uploadsHandler.maxBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		analyzeHandler:  NewAnalyzeHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		sportsHandler:   NewSportsHandler(deps),
		uploadsHandler:  NewUploadsHandler(deps, defaultMaxUpload),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/analyze", MetricsMiddleware(
		RateLimit(s.analyzeHandler.HandleAnalyze, s.analyzeLimiter, "analyze"), "analyze"))
	mux.HandleFunc("POST /v1/uploads", MetricsMiddleware(s.uploadsHandler.HandleUpload, "uploads"))
	mux.HandleFunc("POST /v1/profiles", MetricsMiddleware(s.profilesHandler.HandleUpsert, "profiles_upsert"))
	mux.HandleFunc("GET /v1/profiles/{id}", MetricsMiddleware(s.profilesHandler.HandleGet, "profiles_get"))
	mux.HandleFunc("GET /v1/sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions_list"))
	mux.HandleFunc("GET /v1/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get"))
	mux.HandleFunc("GET /v1/sports", MetricsMiddleware(s.sportsHandler.HandleList, "sports"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err's kind to a status. Internal failures never leak
// their detail.
func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch kind := apperr.KindOf(err); {
	case errors.Is(kind, apperr.ErrValidation):
		return http.StatusBadRequest, apperr.Reason(err)
	case errors.Is(kind, apperr.ErrNotFound):
		return http.StatusNotFound, apperr.Reason(err)
	case errors.Is(kind, apperr.ErrUnavailable):
		return http.StatusServiceUnavailable, apperr.Reason(err)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return apperr.Wrap(op, apperr.ErrValidation, errors.New("invalid JSON body"))
	}
	return nil
}
