// Package server exposes the moderation workflow over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketgate/internal/cache"
	"marketgate/internal/config"
	"marketgate/internal/database"
	"marketgate/internal/middleware"
	"marketgate/internal/models"
	"marketgate/internal/moderation"
	"marketgate/internal/notifications"
	"marketgate/internal/repository"
	"marketgate/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	stopRealtime   context.CancelFunc

	moderationService  *service.ModerationService
	enforcementService *service.EnforcementService
	settingsService    *service.SettingsService
	blacklistService   *service.BlacklistService
	auditService       *service.AuditService
}

// NewServer connects to the database and Redis, builds the moderation pipeline from cfg
// and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it the settings cache, rate limits and notifications are skipped.
	redisClient := cache.Connect(cfg.RedisURL)

	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient, pipeline)
}

// NewPipeline builds the moderation pipeline described by cfg.
func NewPipeline(cfg *config.Config) (*moderation.Pipeline, error) {
	rules, err := moderation.LoadRuleSet(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("load moderation policy: %w", err)
	}
	matcher, err := moderation.NewRuleMatcher(rules)
	if err != nil {
		return nil, fmt.Errorf("compile moderation policy: %w", err)
	}

	classifier := moderation.NewHTTPClassifier(moderation.HTTPClassifierConfig{
		BaseURL:     cfg.ClassifierBaseURL,
		APIKey:      cfg.ClassifierAPIKey,
		TextModel:   cfg.ClassifierTextModel,
		VisionModel: cfg.ClassifierVisionModel,
	})

	return moderation.NewPipeline(moderation.Options{
		Classifier:       classifier,
		ImageStore:       moderation.NewLocalImageStore(cfg.ImageStorageRoot, cfg.ImageURLPrefix),
		Rules:            matcher,
		FailPolicy:       cfg.FailPolicy,
		Timeout:          cfg.ClassifierTimeout(),
		ImageConcurrency: cfg.ImageAnalysisConcurrency,
	}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, pipeline service.Moderator) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	var (
		notifier *notifications.Notifier
		hub      *notifications.Hub
	)
	if redisClient != nil {
		notifier = notifications.NewNotifier(redisClient)
		hub = notifications.NewHub()
	}

	audit := service.NewAuditService(repository.NewAuditRepository(db))
	settings := service.NewSettingsService(
		repository.NewSettingRepository(db),
		cache.NewSettingsCache(redisClient, cfg.SettingsCacheTTL()),
		audit,
	)
	blacklist := service.NewBlacklistService(repository.NewBlacklistRepository(db), audit)
	enforcement := service.NewEnforcementService(userRepo, audit, notifier)

	s := &Server{
		config:             cfg,
		db:                 db,
		redis:              redisClient,
		promMiddleware:     middleware.InitMetrics("marketgate"),
		userRepo:           userRepo,
		notifier:           notifier,
		hub:                hub,
		auditService:       audit,
		settingsService:    settings,
		blacklistService:   blacklist,
		enforcementService: enforcement,
	}
	s.moderationService = service.NewModerationService(service.ModerationDeps{
		Listings:    listingRepo,
		Reviews:     reviewRepo,
		Users:       userRepo,
		Pipeline:    pipeline,
		Settings:    settings,
		Blacklist:   blacklist,
		Enforcement: enforcement,
		Audit:       audit,
		Notifier:    notifier,
	})
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/listings", s.ListPublishedListings)

	protected := api.Group("", middleware.AuthRequired(s.config.JWTSecret))

	listings := protected.Group("/listings")
	listings.Post("/", middleware.RateLimit(s.redis, 10, 10*time.Minute, "submit_listing"), s.SubmitListing)
	listings.Post("/:id/moderate", middleware.RateLimit(s.redis, 10, 10*time.Minute, "moderate_listing"), s.ModerateListing)
	listings.Get("/:id/moderation", s.GetModerationStatus)
	listings.Get("/:id/moderation/history", s.GetListingHistory)

	protected.Get("/ws/moderation", s.ModerationSocket())

	protected.Post("/reviews/:id/appeal", middleware.RateLimit(s.redis, 5, time.Hour, "appeal"), s.SubmitAppeal)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/moderation/queue", s.GetReviewQueue)
	admin.Post("/moderation/reviews/:id/decision", s.ResolveReview)
	admin.Get("/moderation/rejections", s.GetRejectionLog)
	admin.Get("/audit", s.GetAuditLog)
	admin.Get("/blacklist", s.GetBlacklist)
	admin.Post("/blacklist", s.AddBlacklistEntry)
	admin.Delete("/blacklist/:id", s.RemoveBlacklistEntry)
	admin.Get("/settings", s.GetSettings)
	admin.Put("/settings/:key", s.UpdateSetting)
	admin.Post("/users/:id/unban", s.UnbanUser)
	admin.Post("/users/:id/reset-strikes", s.ResetUserStrikes)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so only a failing
// database makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"fail_policy": s.config.FailPolicy,
		"time":        time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// App builds the Fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "marketgate",
		BodyLimit: 2 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled request error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartRealtime relays owner notifications from Redis to connected websockets until
// Shutdown. Without Redis it does nothing.
func (s *Server) StartRealtime(ctx context.Context) error {
	if s.hub == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		cancel()
		return fmt.Errorf("start notification relay: %w", err)
	}
	s.stopRealtime = cancel
	return nil
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.StartRealtime(context.Background()); err != nil {
		slog.Error("owner notifications disabled", "error", err)
	}
	s.app = s.App()
	slog.Info("server starting", "port", s.config.Port, "fail_policy", s.config.FailPolicy)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopRealtime != nil {
		s.stopRealtime()
	}
	if s.hub != nil {
		_ = s.hub.Shutdown(ctx)
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "error", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
