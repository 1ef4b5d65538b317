package services

import (
	"sync"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
)

// NotificationEvent is pushed to live SSE streams when a notification row is written.
type NotificationEvent struct {
	ID        uint      `json:"id"`
	EventType string    `json:"event_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	MatterID  *uint     `json:"matter_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type hubClient struct {
	recipientID uint
	ch          chan NotificationEvent
}

// NotificationHub fans notifications out to the recipient's open streams.
type NotificationHub struct {
	clients map[string]*hubClient
	mu      sync.RWMutex
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]*hubClient),
	}
}

// Subscribe registers a stream for recipientID.
func (h *NotificationHub) Subscribe(clientID string, recipientID uint) <-chan NotificationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan NotificationEvent, 32)
	h.clients[clientID] = &hubClient{recipientID: recipientID, ch: ch}
	return ch
}

func (h *NotificationHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers n to every stream of its recipient. Slow streams drop events.
func (h *NotificationHub) Publish(n *models.Notification) {
	event := NotificationEvent{
		ID:        n.ID,
		EventType: n.EventType,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		MatterID:  n.MatterID,
		CreatedAt: n.CreatedAt,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.recipientID != n.RecipientID {
			continue
		}
		select {
		case c.ch <- event:
		default:
		}
	}
}

func (h *NotificationHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var (
	globalNotificationHub *NotificationHub
	notificationHubOnce   sync.Once
)

// GetNotificationHub returns the process-wide hub.
func GetNotificationHub() *NotificationHub {
	notificationHubOnce.Do(func() {
		globalNotificationHub = NewNotificationHub()
	})
	return globalNotificationHub
}
