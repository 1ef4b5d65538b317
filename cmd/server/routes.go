package main

import (
	"github.com/gin-gonic/gin"
	"github.com/matterdesk/matterdesk/internal/config"
	"github.com/matterdesk/matterdesk/internal/handlers"
	"github.com/matterdesk/matterdesk/internal/middleware"
	"github.com/matterdesk/matterdesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
// The returned limiter must be stopped on shutdown.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())

	publicLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue, svc.hub)
	metricsHandler := handlers.NewMetricsHandler(svc.db, svc.taskQueue, svc.hub)
	authHandler := handlers.NewAuthHandler(svc.auth)
	matterHandler := handlers.NewMatterHandler(svc.matters, svc.payments, svc.assignments)
	documentHandler := handlers.NewDocumentHandler(svc.documents)
	notificationHandler := handlers.NewNotificationHandler(svc.notifications, svc.hub)
	invitationHandler := handlers.NewInvitationHandler(svc.invitations)
	directoryHandler := handlers.NewDirectoryHandler(svc.directory)

	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", metricsHandler.Metrics)

	api := r.Group("/api")
	api.Use(middleware.WriteLog())
	{
		api.GET("/health", healthHandler.CheckHealth)

		// Public routes
		public := api.Group("", publicLimiter.Middleware())
		{
			public.POST("/auth/login", authHandler.Login)
			public.POST("/auth/login/ldap", authHandler.LoginLDAP)
			public.POST("/auth/refresh", authHandler.Refresh)
			public.POST("/auth/register", authHandler.Register)
			public.GET("/auth/config", authHandler.GetAuthConfig)
			public.GET("/invitations/:token", invitationHandler.Lookup)
			public.POST("/invitations/:token/redeem", invitationHandler.Redeem)
		}

		api.GET("/events/notifications",
			middleware.StreamAuthRequired(),
			middleware.PrincipalRequired(svc.identity, svc.revokeSessions),
			notificationHandler.Stream)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.PrincipalRequired(svc.identity, svc.revokeSessions))
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			protected.GET("/matters", matterHandler.List)
			protected.POST("/matters", matterHandler.File)
			protected.POST("/matters/paid", matterHandler.FileWithPayment)
			protected.GET("/matters/lifecycle", matterHandler.Lifecycle)
			protected.GET("/matters/:id", matterHandler.Get)
			protected.POST("/matters/:id/transitions", matterHandler.Transition)
			protected.POST("/matters/:id/assignment", matterHandler.Assign)

			protected.GET("/matters/:id/documents", documentHandler.ListDocuments)
			protected.POST("/matters/:id/documents", documentHandler.AddDocument)
			protected.PUT("/documents/:id/visibility", documentHandler.SetVisibility)
			protected.GET("/matters/:id/updates", documentHandler.ListUpdates)
			protected.POST("/matters/:id/updates", documentHandler.PostUpdate)

			protected.GET("/notifications", notificationHandler.List)
			protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
			protected.POST("/notifications/:id/read", notificationHandler.MarkRead)

			// Internal staff
			staff := protected.Group("", middleware.InternalRequired())
			{
				staff.GET("/staff", directoryHandler.ListStaff)
				staff.GET("/staff/eligible", matterHandler.EligibleStaff)
				staff.GET("/invitations", invitationHandler.ListPending)
				staff.POST("/invitations", invitationHandler.Create)
			}

			// Admin manager only
			admin := protected.Group("", middleware.AdminRequired())
			{
				admin.PUT("/staff/:id/status", directoryHandler.ChangeStatus)
				admin.PUT("/firm", directoryHandler.UpdateFirm)
				admin.GET("/audit-records", directoryHandler.AuditLog)
			}
		}
	}

	return publicLimiter
}
