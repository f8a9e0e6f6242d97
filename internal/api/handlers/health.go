// Package handlers provides HTTP handlers for the admin API.
package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
)

// Pinger is a dependency whose liveness is reported by the health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	components map[string]Pinger
	order      []string
}

// NewHealthHandler creates a new HealthHandler. Nil components are ignored.
func NewHealthHandler(components map[string]Pinger) *HealthHandler {
	h := &HealthHandler{components: make(map[string]Pinger)}
	for name, p := range components {
		if p != nil {
			h.components[name] = p
			h.order = append(h.order, name)
		}
	}
	sort.Strings(h.order)
	return h
}

// Health handles the /health endpoint.
// @Summary Health check
// @Description Returns the overall health status and component statuses
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse "Service healthy"
// @Failure 503 {object} dto.HealthResponse "Service unhealthy"
// @Router /api/v1/assistant-bot/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	components := make(map[string]string)
	healthy := true

	for _, name := range h.order {
		if err := h.components[name].Ping(c.Request.Context()); err != nil {
			components[name] = "unhealthy"
			healthy = false
		} else {
			components[name] = "healthy"
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, dto.HealthResponse{
		Status:     status,
		Components: components,
	})
}

// Ready handles the /ready endpoint.
// @Summary Readiness check
// @Description Returns 200 if every dependency answers
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service ready"
// @Failure 503 {object} map[string]string "Service not ready"
// @Router /api/v1/assistant-bot/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	for _, name := range h.order {
		if err := h.components[name].Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": name + " unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// Live handles the /live endpoint.
// @Summary Liveness check
// @Description Returns 200 if the service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Service alive"
// @Router /api/v1/assistant-bot/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
