package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the service and its dependencies are up.
type HealthHandler struct {
	Checks  map[string]HealthCheck
	Timeout time.Duration
	Log     *logrus.Logger
}

// NewHealthHandler creates a HealthHandler with a two second timeout per check.
func NewHealthHandler(checks map[string]HealthCheck, log *logrus.Logger) *HealthHandler {
	return &HealthHandler{Checks: checks, Timeout: 2 * time.Second, Log: log}
}

// Health handles GET /health. Any failing check turns the response into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	status := http.StatusOK
	results := make(gin.H, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			h.Log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			results[name] = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "UP"
	}

	overall := "UP"
	if status != http.StatusOK {
		overall = "DOWN"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}
