package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/config"
	"github.com/noah-isme/seniku-go-api/internal/database"
	"github.com/noah-isme/seniku-go-api/internal/handler"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/observability"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/internal/router"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/worker"
	cloud "github.com/noah-isme/seniku-go-api/pkg/cloudinary"
	"github.com/noah-isme/seniku-go-api/pkg/imageproc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	} else {
		logger.Warn().Msg("redis not configured, dashboard cache and notification fan-out disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
	}

	var store service.ImageStore
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("image uploads disabled")
	} else {
		store = uploader
	}
	processor := imageproc.New(imageproc.Options{
		MinDimension:   cfg.ImageMinDimension,
		MediumWidth:    cfg.ImageMediumWidth,
		ThumbnailWidth: cfg.ImageThumbnailWidth,
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	dispatcher := worker.NewDispatcher(cfg.TaskTimeout, logger)

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, logger)
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Analytics:     analyticsRepo,
		Assignments:   assignmentRepo,
		Users:         userRepo,
		Submissions:   submissionRepo,
		Achievements:  achievementRepo,
		Notifications: notificationRepo,
		Cache:         redisClient,
		CacheTTL:      cfg.DashboardCacheTTL,
		Logger:        logger,
	})
	achievementService := service.NewAchievementService(achievementRepo, submissionRepo, notificationService, activityService, validate, logger)
	authService := service.NewAuthService(userRepo, tokens, validate, logger)
	userService := service.NewUserService(userRepo, classRepo, validate, processor, store, activityService, logger)
	classService := service.NewClassService(classRepo, validate, activityService, logger)
	categoryService := service.NewCategoryService(categoryRepo, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Assignments:   assignmentRepo,
		Categories:    categoryRepo,
		Classes:       classRepo,
		Users:         userRepo,
		Submissions:   submissionRepo,
		Validator:     validate,
		Notifications: notificationService,
		Dashboards:    dashboardService,
		Activity:      activityService,
		Runner:        dispatcher,
		Logger:        logger,
	})
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		Submissions:   submissionRepo,
		Assignments:   assignmentRepo,
		Users:         userRepo,
		Validator:     validate,
		Processor:     processor,
		Store:         store,
		Notifications: notificationService,
		Achievements:  achievementService,
		Dashboards:    dashboardService,
		Activity:      activityService,
		Runner:        dispatcher,
		Logger:        logger,
	})
	portfolioService := service.NewPortfolioService(analyticsRepo, userRepo, logger)
	exportService := service.NewExportService(analyticsRepo, userRepo, logger)

	if cfg.SeedAchievements {
		created, err := achievementService.SeedDefaults(context.Background())
		if err != nil {
			log.Fatalf("failed to seed achievements: %v", err)
		}
		logger.Info().Int("created", created).Msg("default achievements seeded")
	}

	if cfg.ActivityRetention > 0 {
		cutoff := time.Now().Add(-cfg.ActivityRetention)
		dispatcher.Go(context.Background(), "activity.prune", func(ctx context.Context) error {
			_, err := activityService.Prune(ctx, cutoff)
			return err
		})
	}

	streamCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	notificationService.Start(streamCtx)

	maxUpload := int64(cfg.UploadMaxMB) << 20

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(maxUpload) + 1<<20,
		ErrorHandler: handler.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, CORSOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, maxUpload, logger),
		ClassHandler:        handler.NewClassHandler(classService, logger),
		CategoryHandler:     handler.NewCategoryHandler(categoryService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, maxUpload, logger),
		AchievementHandler:  handler.NewAchievementHandler(achievementService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 25*time.Second),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, portfolioService, logger),
		ExportHandler:       handler.NewExportHandler(exportService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		HealthProbes:        healthProbes(db, redisClient),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		LoginLimiter:        middleware.LoginRateLimit(cfg.LoginRateLimit, cfg.LoginRateWindow),
		ExposeMetrics:       true,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, dispatcher, stopStreams)

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if natsConn != nil {
		natsConn.Close()
	}
	log.Println("server stopped")
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, dispatcher *worker.Dispatcher, stopStreams context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopStreams()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Printf("background tasks interrupted: %v", err)
	}
}
