package main

import (
	"context"
	"slices"
	"time"

	"github.com/matterdesk/matterdesk/internal/config"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/services"
	"github.com/matterdesk/matterdesk/internal/utils"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	db        *gorm.DB
	taskQueue services.TaskQueue
	worker    *services.Worker
	scheduler *services.SchedulerService
	hub       *services.NotificationHub

	identity      *services.IdentityService
	auth          *services.AuthService
	notifications *services.NotificationService
	matters       *services.MatterService
	assignments   *services.AssignmentService
	invitations   *services.InvitationService
	documents     *services.DocumentService
	payments      *services.PaymentService
	directory     *services.DirectoryService
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	// Task queue uses Redis if enabled, otherwise delivers in-process
	taskQueue := services.InitTaskQueue(cfg)
	hub := services.GetNotificationHub()

	audit := services.NewAuditService(db)
	notifications := services.NewNotificationService(db, taskQueue, hub)
	calendar := services.NewBusinessCalendar(cfg.Calendar.Country)
	if !slices.Contains(services.SupportedCalendarCountries(), calendar.Country()) {
		logger.Warn().Str("country", calendar.Country()).Msg("Unknown calendar country, counting weekdays only")
	}
	matters := services.NewMatterService(db, audit, notifications, calendar)

	svc := &appServices{
		db:            db,
		taskQueue:     taskQueue,
		hub:           hub,
		identity:      services.NewIdentityService(db),
		auth:          services.NewAuthService(db, &cfg.JWT, services.NewLDAPService(&cfg.LDAP), audit),
		notifications: notifications,
		matters:       matters,
		assignments:   services.NewAssignmentService(db, audit, notifications),
		invitations:   services.NewInvitationService(db, audit, time.Duration(cfg.Invitation.TTLHours)*time.Hour),
		documents:     services.NewDocumentService(db, audit, notifications),
		payments:      services.NewPaymentService(db, audit, matters),
		directory:     services.NewDirectoryService(db, audit),
	}

	if err := svc.auth.SeedFirmAdmin(context.Background(), &cfg.Bootstrap); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed firm administrator")
	}

	// Start async worker if the queue really is Redis-backed
	if taskQueue.IsAsync() {
		svc.worker = services.NewWorker(&cfg.Redis)
		if svc.worker != nil {
			svc.worker.SetProcessor(notifications.Deliver)
			if err := svc.worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start notification worker")
			}
		}
	}

	svc.scheduler = services.NewSchedulerService(db, notifications)
	if err := svc.scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// revokeSessions adapts session revocation for the principal middleware.
func (s *appServices) revokeSessions(profileID uint) (int64, error) {
	return services.RevokeSessions(s.db, profileID)
}
