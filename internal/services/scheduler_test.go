package services

import (
	"context"
	"testing"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_NotifyLapsedInvitationsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scheduler := NewSchedulerService(env.db, env.notifier)

	lapsed, err := env.invitations.Create(ctx, actorOf(env.manager), &CreateInvitationRequest{
		Email: "late@firm.com", Role: models.RoleAssociateLawyer,
	})
	require.NoError(t, err)
	_, err = env.invitations.Create(ctx, actorOf(env.admin), &CreateInvitationRequest{
		Email: "fresh@firm.com", Role: models.RoleCaseManager,
	})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Invitation{}).Where("id = ?", lapsed.Invitation.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	n, err := scheduler.NotifyLapsedInvitations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = scheduler.NotifyLapsedInvitations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "each lapse is reported once")

	var notes []models.Notification
	require.NoError(t, env.db.Where("event_type = ?", models.EventInvitationLapsed).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, env.manager.ID, notes[0].RecipientID)

	var stored models.Invitation
	require.NoError(t, env.db.First(&stored, lapsed.Invitation.ID).Error)
	assert.Equal(t, models.InvitationPending, stored.Status)
	assert.NotNil(t, stored.LapseNotifiedAt)
}

func TestSchedulerService_PurgeRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scheduler := NewSchedulerService(env.db, env.notifier)
	now := time.Now()

	tokens := []models.RefreshToken{
		{ProfileID: env.client.ID, TokenHash: "old", ExpiresAt: now.Add(-30 * 24 * time.Hour)},
		{ProfileID: env.client.ID, TokenHash: "recent", ExpiresAt: now.Add(-24 * time.Hour)},
		{ProfileID: env.client.ID, TokenHash: "live", ExpiresAt: now.Add(24 * time.Hour)},
	}
	require.NoError(t, env.db.Create(&tokens).Error)

	n, err := scheduler.PurgeRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.EqualValues(t, 2, env.countRows(t, &models.RefreshToken{}, "profile_id = ?", env.client.ID))
}

func TestSchedulerService_RemindOverdueReviews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scheduler := NewSchedulerService(env.db, env.notifier)

	otherFirm := env.addFirm(t, "Other LLP")
	otherManager := env.addProfile(t, &otherFirm.ID, models.RoleCaseManager, "manager@other.test")
	suspended := env.addProfile(t, &otherFirm.ID, models.RoleCaseManager, "suspended@other.test")
	require.NoError(t, env.db.Model(suspended).Update("status", models.StatusSuspended).Error)

	overdue := env.fileMatter(t)
	env.transition(t, overdue.ID, models.MatterInReview)
	intake := env.fileMatter(t)
	onTime := env.fileMatter(t)
	env.transition(t, onTime.ID, models.MatterInReview)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, env.db.Model(&models.Matter{}).Where("id IN ?", []uint{overdue.ID, intake.ID}).
		Update("review_due_at", past).Error)

	n, err := scheduler.RemindOverdueReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "the firm matter reaches its firm; the firm-less intake reaches every active case manager")

	recipientsOf := func(matterID uint) []uint {
		var ids []uint
		require.NoError(t, env.db.Model(&models.Notification{}).
			Where("event_type = ? AND matter_id = ?", models.EventReviewOverdue, matterID).
			Order("recipient_id").Pluck("recipient_id", &ids).Error)
		return ids
	}
	assert.Equal(t, []uint{env.manager.ID}, recipientsOf(overdue.ID))
	assert.ElementsMatch(t, []uint{env.manager.ID, otherManager.ID}, recipientsOf(intake.ID))
	assert.Empty(t, recipientsOf(onTime.ID))
}

func TestSchedulerService_LockIsPerWindow(t *testing.T) {
	env := newTestEnv(t)
	scheduler := NewSchedulerService(env.db, env.notifier)
	other := NewSchedulerService(env.db, env.notifier)
	expires := time.Now().Add(time.Hour)

	assert.True(t, scheduler.acquireLock(lockTokenCleanup, "2025-01-01T03", expires))
	assert.False(t, other.acquireLock(lockTokenCleanup, "2025-01-01T03", expires), "second replica skips the window")
	assert.True(t, other.acquireLock(lockTokenCleanup, "2025-01-02T03", expires))
	assert.True(t, other.acquireLock(lockReviewOverdue, "2025-01-01T03", expires))

	fixed := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return fixed }
	other.now = func() time.Time { return fixed }

	runs := 0
	job := func(context.Context) (int, error) { runs++; return 0, nil }
	scheduler.runLocked(lockInvitationLapse, job)
	other.runLocked(lockInvitationLapse, job)
	assert.Equal(t, 1, runs)
}
