package api

import (
	"net/http"
	"time"

	respond "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	isHealthy func() bool
}

// NewHealthHandler reports the state of isHealthy; nil means always unhealthy.
func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	if isHealthy == nil {
		isHealthy = func() bool { return false }
	}
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.isHealthy() {
		status = "healthy"
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
