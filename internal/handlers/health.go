package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports on the database, delivery queue and notification streams.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.NotificationHub
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, hub *services.NotificationHub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}
	if overall != "healthy" {
		status = 503
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var pendingReview int64
	if dbStatus == "ok" {
		h.db.Model(&models.Matter{}).
			Where("status IN ?", []models.MatterStatus{models.MatterPendingReview, models.MatterInReview}).
			Count(&pendingReview)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "matterdesk",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"stream_clients": h.hub.ClientCount(),
			"pending_review": pendingReview,
		},
	})
}
