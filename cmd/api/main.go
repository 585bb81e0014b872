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

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/config"
	"github.com/courseloop/coursework-api/internal/database"
	"github.com/courseloop/coursework-api/internal/handler"
	"github.com/courseloop/coursework-api/internal/middleware"
	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/repository"
	"github.com/courseloop/coursework-api/internal/router"
	"github.com/courseloop/coursework-api/internal/service"
	cloud "github.com/courseloop/coursework-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Student{}, &models.Task{}, &models.TaskAssignee{}, &models.Submission{}, &models.Blob{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	events := buildEventPublisher(cfg, logger)

	backend, err := buildStorageBackend(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise content store: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	blobRepo := repository.NewBlobRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	store := blobstore.New(backend, blobRepo, logger)

	taskService := service.NewTaskService(taskRepo, submissionRepo, store, validate, events, cfg.UploadMaxMB, logger)
	submissionService := service.NewSubmissionService(submissionRepo, taskRepo, studentRepo, store, validate, events, cfg.UploadMaxMB, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cfg.AnalyticsWeeks, logger)

	taskHandler := handler.NewTaskHandler(taskService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:       taskHandler,
		SubmissionHandler: submissionHandler,
		AnalyticsHandler:  analyticsHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildEventPublisher connects to whichever brokers are configured. Both are
// optional; with neither configured events are dropped.
func buildEventPublisher(cfg config.Config, logger zerolog.Logger) service.EventPublisher {
	var (
		redisClient *redis.Client
		natsConn    *nats.Conn
		err         error
	)

	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	}

	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
	}

	if redisClient == nil && natsConn == nil {
		logger.Info().Msg("no event broker configured, events disabled")
		return service.NopEventPublisher{}
	}

	return service.NewEventPublisher(redisClient, natsConn, "coursework", logger)
}

// buildStorageBackend selects the content store implementation.
func buildStorageBackend(cfg config.Config, logger zerolog.Logger) (blobstore.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageCloudinary:
		client, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			return nil, err
		}
		return blobstore.NewCloudinary(client), nil
	default:
		disk, err := blobstore.NewDisk(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
