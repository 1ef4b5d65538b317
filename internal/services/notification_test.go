package services

import (
	"context"
	"errors"
	"testing"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_EmitDeliversAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hub := NewNotificationHub()
	svc := NewNotificationService(env.db, nil, hub)
	stream := hub.Subscribe("tab-1", env.client.ID)

	svc.Emit(ctx, env.client.ID, models.EventCaseUpdate, NotificationPayload{Title: "Update", Message: "Hearing moved"})

	var stored models.Notification
	require.NoError(t, env.db.Where("recipient_id = ?", env.client.ID).First(&stored).Error)
	assert.Equal(t, models.ChannelInApp, stored.Channel)
	assert.Equal(t, "Hearing moved", stored.Message)
	assert.Nil(t, stored.ReadAt)

	select {
	case event := <-stream:
		assert.Equal(t, stored.ID, event.ID)
	default:
		t.Fatal("expected the notification on the live stream")
	}
}

func TestNotificationService_EmitNeverFailsCaller(t *testing.T) {
	env := newTestEnv(t)
	queue := NewSyncQueue()
	queue.SetProcessor(func(ctx context.Context, task *NotificationTask) error {
		return errors.New("smtp down")
	})
	svc := NewNotificationService(env.db, queue, nil)

	assert.NotPanics(t, func() {
		svc.Emit(context.Background(), env.client.ID, models.EventCaseUpdate, NotificationPayload{Title: "x"})
	})
	assert.Zero(t, env.countRows(t, &models.Notification{}, "1 = 1"))
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env.notifier.Emit(ctx, env.client.ID, models.EventCaseUpdate, NotificationPayload{Title: "note"})
	}
	env.notifier.Emit(ctx, env.manager.ID, models.EventReviewOverdue, NotificationPayload{Title: "other"})

	list, err := env.notifier.List(ctx, actorOf(env.client), &NotificationListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.EqualValues(t, 3, list.UnreadCount)
	require.Len(t, list.Items, 3)

	first := list.Items[0].ID
	err = env.notifier.MarkRead(ctx, actorOf(env.manager), first)
	require.ErrorIs(t, err, response.ErrForbidden, "only the recipient may mark a notification")

	require.NoError(t, env.notifier.MarkRead(ctx, actorOf(env.client), first))
	require.NoError(t, env.notifier.MarkRead(ctx, actorOf(env.client), first), "marking twice is harmless")

	unread, err := env.notifier.List(ctx, actorOf(env.client), &NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread.Total)
	assert.EqualValues(t, 2, unread.UnreadCount)

	n, err := env.notifier.MarkAllRead(ctx, actorOf(env.client))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = env.notifier.MarkAllRead(ctx, actorOf(env.client))
	require.NoError(t, err)
	assert.Zero(t, n)

	err = env.notifier.MarkRead(ctx, actorOf(env.client), 4242)
	require.ErrorIs(t, err, response.ErrNotFound)

	managerList, err := env.notifier.List(ctx, actorOf(env.manager), &NotificationListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, managerList.UnreadCount, "other recipients are untouched")
}
