package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReadinessCheck probes one backing dependency.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]ReadinessCheck
	logger *zap.Logger
}

// HealthOption customizes a HealthHandler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a named dependency probe.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(log *zap.Logger, opts ...HealthOption) *HealthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &HealthHandler{checks: make(map[string]ReadinessCheck), logger: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status handles GET /healthz. Liveness never touches dependencies.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness handles GET /readyz, probing every registered dependency with a
// short deadline. Any failing check turns the response into a 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unavailable"
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Checks: results})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Checks: results})
}
