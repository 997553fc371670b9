package httpapi

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// Healthz handles GET /healthz. It reports 503 when the store or the policy engine is unhealthy.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if a.deps.Pinger != nil {
		checks["store"] = "ok"
		if err := a.deps.Pinger.PingContext(ctx); err != nil {
			a.log.Warn(ctx, "health: store ping failed", "error", err)
			checks["store"], healthy = "unavailable", false
		}
	}
	if a.deps.PolicyChecker != nil {
		checks["policy"] = "ok"
		if err := a.deps.PolicyChecker.HealthCheck(ctx); err != nil {
			a.log.Warn(ctx, "health: policy check failed", "error", err)
			checks["policy"], healthy = "unavailable", false
		}
	}
	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
