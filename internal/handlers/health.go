package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks that the statement store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	backend string
	ping    Pinger
}

func NewHealthHandler(backend string, ping Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, ping: ping}
}

// Health godoc
// @Summary Liveness and store reachability
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"database": h.backend + " unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"message":  "LRS dashboard API is running",
		"database": h.backend + " connected",
	})
}
