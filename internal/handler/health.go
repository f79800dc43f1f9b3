package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheck names one readiness dependency.
type HealthCheck struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks []HealthCheck
	logger *slog.Logger
	// providers reports which upstream integrations are configured.
	providers map[string]bool
}

// NewHealthHandler creates a new HealthHandler. Checks with a nil Checker
// are reported as not configured and do not fail readiness.
func NewHealthHandler(logger *slog.Logger, providers map[string]bool, checks ...HealthCheck) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{checks: checks, logger: logger, providers: providers}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Providers map[string]bool   `json:"providers,omitempty"`
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true

	for _, c := range h.checks {
		if c.Checker == nil {
			checks[c.Name] = "not configured"
			continue
		}
		if err := c.Checker.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			checks[c.Name] = "error"
			healthy = false
			continue
		}
		checks[c.Name] = "ok"
	}

	resp := HealthResponse{Status: "ok", Checks: checks, Providers: h.providers}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
