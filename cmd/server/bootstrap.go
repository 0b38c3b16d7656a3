package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/internal/handlers"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg          *config.Config
	store        *storage.Store
	cleanupQueue services.CleanupQueue
	worker       *services.Worker
	scheduler    *services.Scheduler

	applicationHandler *handlers.ApplicationHandler
	categoryHandler    *handlers.CategoryHandler
	iconHandler        *handlers.IconHandler
	userHandler        *handlers.UserHandler
	authHandler        *handlers.AuthHandler
	systemLogHandler   *handlers.SystemLogHandler
	healthHandler      *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, storage, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	response.SetMode(cfg.Server.Mode)
	gin.SetMode(cfg.Server.Mode)

	if err := models.InitDB(&cfg.Database, cfg.Server.Mode); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	if err := os.MkdirAll(cfg.Storage.Root, 0755); err != nil {
		logger.Fatalf("Failed to create storage root %s: %v", cfg.Storage.Root, err)
	}
	store := storage.New(cfg.Storage.Root)

	services.InitSystemLogger(db)

	// Uses Redis if enabled, otherwise removals are retried inline
	remover := services.StoreRemover(store)
	cleanupQueue := services.InitCleanupQueue(cfg, remover)

	var worker *services.Worker
	if cleanupQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, remover)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start asset cleanup worker")
				worker = nil
			}
		}
	}

	applicationService := services.NewApplicationService(db, store, cleanupQueue)
	iconService := services.NewIconService(db, store, cleanupQueue, cfg.Storage.MaxIconSize)
	categoryService := services.NewCategoryService(db)
	userService := services.NewUserService(db)

	if err := userService.EnsureAdmin(cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	if report, err := iconService.SeedSystemIcons(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed system icons")
	} else if report.Created > 0 {
		logger.Info().Int("created", report.Created).Int("total", report.Total).Msg("Seeded system icons")
	}

	if err := services.RegisterDBMetrics(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to register database metrics")
	}

	scheduler := services.NewScheduler(db, store, cfg)
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	return &appServices{
		cfg:          cfg,
		store:        store,
		cleanupQueue: cleanupQueue,
		worker:       worker,
		scheduler:    scheduler,

		applicationHandler: handlers.NewApplicationHandler(applicationService),
		categoryHandler:    handlers.NewCategoryHandler(categoryService),
		iconHandler:        handlers.NewIconHandler(iconService),
		userHandler:        handlers.NewUserHandler(userService),
		authHandler:        handlers.NewAuthHandler(services.NewAuthService(db)),
		systemLogHandler:   handlers.NewSystemLogHandler(services.NewSystemLogService(db)),
		healthHandler:      handlers.NewHealthHandler(db, store),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.cleanupQueue != nil {
		s.cleanupQueue.Close()
	}

	if sqlDB, err := models.GetDB().DB(); err == nil {
		sqlDB.Close()
	}
}
