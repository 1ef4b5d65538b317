package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

type MetricsHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.NotificationHub
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue, hub *services.NotificationHub) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, hub: hub}
}

// Metrics returns Prometheus-compatible text format metrics.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "matterdesk_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "matterdesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "matterdesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "matterdesk_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "matterdesk_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	writeGauge(&b, "matterdesk_stream_clients", "Number of open notification streams", float64(h.hub.ClientCount()))

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "matterdesk_queue_async_enabled", "Whether async delivery (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// Matter counts by lifecycle status
	type statusCount struct {
		Status models.MatterStatus
		Count  int64
	}
	var counts []statusCount
	h.db.Model(&models.Matter{}).Select("status, count(*) as count").Group("status").Scan(&counts)
	byStatus := make(map[models.MatterStatus]int64, len(counts))
	for _, sc := range counts {
		byStatus[sc.Status] = sc.Count
	}
	fmt.Fprintf(&b, "# HELP matterdesk_matters Number of matters by status\n# TYPE matterdesk_matters gauge\n")
	for _, status := range models.AllMatterStatuses {
		fmt.Fprintf(&b, "matterdesk_matters{status=%q} %d\n", status, byStatus[status])
	}
	b.WriteString("\n")

	var pendingInvitations, unread int64
	h.db.Model(&models.Invitation{}).
		Where("status = ? AND expires_at > ?", models.InvitationPending, time.Now()).
		Count(&pendingInvitations)
	h.db.Model(&models.Notification{}).Where("read_at IS NULL").Count(&unread)
	writeGauge(&b, "matterdesk_invitations_pending", "Unexpired pending invitations", float64(pendingInvitations))
	writeGauge(&b, "matterdesk_notifications_unread", "Unread notifications", float64(unread))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
