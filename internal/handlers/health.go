package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lilyumflora/api/internal/platform/httpx"
)

// ReadinessProber reports whether the service's backing stores are reachable.
type ReadinessProber interface {
	Ping(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	prober ReadinessProber
}

// NewHealthHandlers constructs health endpoints. A nil prober makes readiness
// unconditionally succeed, which is only appropriate for tests.
func NewHealthHandlers(prober ReadinessProber) *HealthHandlers {
	return &HealthHandlers{prober: prober}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
	})
}

// Readyz reports whether the service can reach its datastore.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.prober != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.prober.Ping(ctx); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", "datastore unreachable", http.StatusServiceUnavailable))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ready",
	})
}
