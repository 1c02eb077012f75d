package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guestbook/internal/db"
)

// DatabaseStatus es lo que los health checks leen del db.Manager.
type DatabaseStatus interface {
	State() (db.State, error)
	HealthCheck(ctx context.Context) error
}

// HealthHandler expone liveness y readiness.
type HealthHandler struct {
	logger  *zap.Logger
	db      DatabaseStatus
	started time.Time
}

func NewHealthHandler(logger *zap.Logger, database DatabaseStatus, started time.Time) *HealthHandler {
	return &HealthHandler{logger: logger, db: database, started: started}
}

// Health maneja GET /health. Responde 200 aunque no haya base.
func (h *HealthHandler) Health(c *gin.Context) {
	state, _ := h.db.State()
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    time.Since(h.started).Seconds(),
		"database":  databaseStatus(state),
	})
}

// Ready maneja GET /healthz con un ping real al pool.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		state, _ := h.db.State()
		h.logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": databaseStatus(state)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func databaseStatus(state db.State) string {
	switch state {
	case db.StateReady:
		return "connected"
	case db.StateDegraded:
		return "not configured"
	case db.StateFailed:
		return "unavailable"
	default:
		return "disconnected"
	}
}
