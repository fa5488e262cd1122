package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/formcoach/internal/adapters/repository"
	"github.com/okian/formcoach/pkg/metrics"
)

// HealthDependencies reports the storage backend name and its liveness.
type HealthDependencies interface {
	Ping(ctx context.Context) (string, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// storagePingFailed replaces the driver error, which is logged by the service.
const storagePingFailed = "storage ping failed"

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}

// HandleHealth handles GET /healthz requests. A deployment without
// storage is healthy; a configured backend that fails its ping is not.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	name, err := h.deps.Ping(r.Context())
	if err != nil && name != repository.UnavailableName {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Storage: name, Error: storagePingFailed})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Storage: name})
}

// MetricsHandler serves the service's Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
