package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	lockInvitationLapse = "invitation_lapse"
	lockTokenCleanup    = "refresh_token_cleanup"
	lockReviewOverdue   = "review_overdue"

	refreshTokenRetention = 7 * 24 * time.Hour
)

// SchedulerService runs the periodic maintenance jobs.
type SchedulerService struct {
	db            *gorm.DB
	notifier      *NotificationService
	cronScheduler *cron.Cron
	instance      string
	now           func() time.Time
}

func NewSchedulerService(db *gorm.DB, notifier *NotificationService) *SchedulerService {
	host, _ := os.Hostname()
	return &SchedulerService{
		db:       db,
		notifier: notifier,
		instance: fmt.Sprintf("%s-%d", host, os.Getpid()),
		now:      time.Now,
	}
}

func (s *SchedulerService) Start() error {
	s.cronScheduler = cron.New()

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (int, error)
	}{
		{"@every 1h", lockInvitationLapse, s.NotifyLapsedInvitations},
		{"0 3 * * *", lockTokenCleanup, s.PurgeRefreshTokens},
		{"0 8 * * 1-5", lockReviewOverdue, s.RemindOverdueReviews},
	}
	for _, job := range jobs {
		if _, err := s.cronScheduler.AddFunc(job.spec, func() { s.runLocked(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	s.cronScheduler.Start()
	logger.Info().Int("jobs", len(jobs)).Msg("scheduler started")
	return nil
}

func (s *SchedulerService) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

func (s *SchedulerService) runLocked(name string, run func(context.Context) (int, error)) {
	now := s.now()
	key := now.UTC().Format("2006-01-02T15")
	if !s.acquireLock(name, key, now.Add(time.Hour)) {
		logger.Debug().Str("job", name).Str("window", key).Msg("job already ran in this window")
		return
	}

	n, err := run(context.Background())
	if err != nil {
		logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		return
	}
	logger.Info().Str("job", name).Int("affected", n).Msg("scheduled job finished")
}

// acquireLock inserts the (name, key) row. The unique index makes a second
// instance's insert fail, which means another replica owns this window.
func (s *SchedulerService) acquireLock(name, key string, expiresAt time.Time) bool {
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instance,
		LockedAt:  s.now(),
		ExpiresAt: expiresAt,
	}
	return s.db.Create(&lock).Error == nil
}

// NotifyLapsedInvitations tells each inviter once that their invitation expired unredeemed.
func (s *SchedulerService) NotifyLapsedInvitations(ctx context.Context) (int, error) {
	now := s.now()
	var lapsed []models.Invitation
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ? AND lapse_notified_at IS NULL", models.InvitationPending, now).
		Find(&lapsed).Error
	if err != nil {
		return 0, err
	}

	notified := 0
	for i := range lapsed {
		inv := &lapsed[i]
		result := s.db.WithContext(ctx).Model(&models.Invitation{}).
			Where("id = ? AND lapse_notified_at IS NULL", inv.ID).
			Update("lapse_notified_at", now)
		if result.Error != nil {
			return notified, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		firmID := inv.FirmID
		s.notifier.Emit(ctx, inv.InvitedBy, models.EventInvitationLapsed, NotificationPayload{
			Title:   "Invitation expired",
			Message: fmt.Sprintf("The invitation for %s (%s) expired before it was accepted.", inv.Email, inv.Role),
			Link:    "/invitations",
			FirmID:  &firmID,
		})
		notified++
	}
	return notified, nil
}

// PurgeRefreshTokens deletes refresh tokens and scheduler locks that are long past expiry.
func (s *SchedulerService) PurgeRefreshTokens(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-refreshTokenRetention)
	db := s.db.WithContext(ctx)

	result := db.Where("expires_at < ?", cutoff).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	if err := db.Where("expires_at < ?", cutoff).Delete(&models.SchedulerLock{}).Error; err != nil {
		return int(result.RowsAffected), err
	}
	return int(result.RowsAffected), nil
}

// RemindOverdueReviews notifies case managers about matters whose review deadline passed.
// A firm-bound matter goes to its firm's case managers. A firm-less intake sits in
// every firm's queue, so every active case manager is reminded.
func (s *SchedulerService) RemindOverdueReviews(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)

	var overdue []models.Matter
	err := db.Where("status IN ? AND review_due_at IS NOT NULL AND review_due_at < ?",
		[]models.MatterStatus{models.MatterPendingReview, models.MatterInReview}, s.now()).
		Order("review_due_at").
		Find(&overdue).Error
	if err != nil {
		return 0, err
	}

	// Keyed by firm id; 0 holds the recipients of firm-less intakes.
	managers := make(map[uint][]uint)
	sent := 0
	for i := range overdue {
		matter := &overdue[i]
		var key uint
		if matter.FirmID != nil {
			key = *matter.FirmID
		}
		recipients, ok := managers[key]
		if !ok {
			query := db.Model(&models.Profile{}).
				Where("role = ? AND status = ?", models.RoleCaseManager, models.StatusActive)
			if key == 0 {
				query = query.Where("firm_id IS NOT NULL")
			} else {
				query = query.Where("firm_id = ?", key)
			}
			if err := query.Pluck("id", &recipients).Error; err != nil {
				return sent, err
			}
			managers[key] = recipients
		}

		matterID := matter.ID
		for _, recipientID := range recipients {
			s.notifier.Emit(ctx, recipientID, models.EventReviewOverdue, NotificationPayload{
				Title:    "Review overdue",
				Message:  fmt.Sprintf("%s (%s) passed its review deadline.", matter.MatterNumber, matter.Title),
				Link:     matterLink(matter.ID),
				FirmID:   matter.FirmID,
				MatterID: &matterID,
			})
			sent++
		}
	}
	return sent, nil
}
