package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

// BreakerReporter exposes an upstream circuit breaker state.
type BreakerReporter interface {
	BreakerState() string
}

type HealthHandler struct {
	db        *database.DB
	cache     *services.CacheService
	scheduler *services.Scheduler
	upstream  BreakerReporter
}

// NewHealthHandler builds the handler. Any dependency may be nil.
func NewHealthHandler(db *database.DB, cache *services.CacheService, scheduler *services.Scheduler, upstream BreakerReporter) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     cache,
		scheduler: scheduler,
		upstream:  upstream,
	}
}

// GetHealth always answers 200 while the process is up.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"service": "fpl-optimizer",
	})
}

// GetReady checks the database and cache connections. An open upstream
// breaker is reported but does not fail readiness.
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = err.Error()
			ready = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			ready = false
		} else {
			checks["cache"] = "ok"
		}
	}

	if h.upstream != nil {
		checks["upstream"] = h.upstream.BreakerState()
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

// GetSchedulerStatus reports the last automated run.
func (h *HealthHandler) GetSchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}
