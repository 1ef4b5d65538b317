package services

import (
	"context"
	"errors"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

// NotificationPayload is the addressed content of one notification.
type NotificationPayload struct {
	Title    string
	Message  string
	Link     string
	FirmID   *uint
	MatterID *uint
}

type NotificationService struct {
	db    *gorm.DB
	queue TaskQueue
	hub   *NotificationHub
}

// NewNotificationService wires delivery through queue. A nil queue, or a
// SyncQueue without a processor, delivers in-process.
func NewNotificationService(db *gorm.DB, queue TaskQueue, hub *NotificationHub) *NotificationService {
	s := &NotificationService{db: db, queue: queue, hub: hub}
	if s.queue == nil {
		s.queue = NewSyncQueue()
	}
	if sq, ok := s.queue.(*SyncQueue); ok && !sq.HasProcessor() {
		sq.SetProcessor(s.Deliver)
	}
	return s
}

// Emit queues a notification for recipientID. It never fails the caller:
// delivery errors are logged and dropped.
func (s *NotificationService) Emit(ctx context.Context, recipientID uint, eventType string, payload NotificationPayload) {
	if recipientID == 0 {
		return
	}
	task := &NotificationTask{
		RecipientID: recipientID,
		FirmID:      payload.FirmID,
		MatterID:    payload.MatterID,
		EventType:   eventType,
		Channel:     models.ChannelInApp,
		Title:       payload.Title,
		Message:     payload.Message,
		Link:        payload.Link,
	}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Warn().Err(err).
			Uint("recipient_id", recipientID).
			Str("event_type", eventType).
			Msg("notification dispatch failed")
	}
}

// Deliver writes the notification row and pushes it to live streams.
// It is the task processor for both the sync queue and the asynq worker.
func (s *NotificationService) Deliver(ctx context.Context, task *NotificationTask) error {
	channel := task.Channel
	if channel == "" {
		channel = models.ChannelInApp
	}
	n := models.Notification{
		RecipientID: task.RecipientID,
		FirmID:      task.FirmID,
		MatterID:    task.MatterID,
		EventType:   task.EventType,
		Channel:     channel,
		Title:       task.Title,
		Message:     task.Message,
		Link:        task.Link,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.Publish(&n)
	}
	return nil
}

type NotificationListRequest struct {
	Page       int  `form:"page"`
	PageSize   int  `form:"page_size"`
	UnreadOnly bool `form:"unread_only"`
}

type NotificationListResponse struct {
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	UnreadCount int64                 `json:"unread_count"`
	Items       []models.Notification `json:"items"`
}

func (s *NotificationService) List(ctx context.Context, actor *Actor, req *NotificationListRequest) (*NotificationListResponse, error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)
	db := s.db.WithContext(ctx)

	var unread int64
	if err := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", actor.ID).
		Count(&unread).Error; err != nil {
		return nil, err
	}

	query := db.Model(&models.Notification{}).Where("recipient_id = ?", actor.ID)
	if req.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Notification
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("id DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &NotificationListResponse{
		Total:       total,
		Page:        req.Page,
		PageSize:    req.PageSize,
		UnreadCount: unread,
		Items:       items,
	}, nil
}

// MarkRead sets read_at once. Only the recipient may mark a notification.
func (s *NotificationService) MarkRead(ctx context.Context, actor *Actor, notificationID uint) error {
	db := s.db.WithContext(ctx)

	var n models.Notification
	if err := db.First(&n, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("notification not found")
		}
		return err
	}
	if n.RecipientID != actor.ID {
		return response.NewForbidden("notification belongs to another principal")
	}

	return db.Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", n.ID).
		Update("read_at", time.Now()).Error
}

// MarkAllRead is idempotent and returns how many rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *Actor) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", actor.ID).
		Update("read_at", time.Now())
	return result.RowsAffected, result.Error
}
