package main

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/handlers"
	"github.com/huangang/appcatalog/backend/internal/middleware"
	"github.com/huangang/appcatalog/backend/pkg/logger"
)

// maxMultipartMemory caps in-memory multipart parts; larger files spill to temp files.
const maxMultipartMemory = 32 << 20

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.MaxMultipartMemory = maxMultipartMemory
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(svc.cfg.CORS.AllowOrigins))

	limits := svc.cfg.RateLimit
	downloadLimiter := middleware.NewRateLimiter(limits.DownloadRPS, limits.DownloadBurst)
	loginLimiter := middleware.NewRateLimiter(limits.LoginRPS, limits.LoginBurst)

	// Operational
	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())
	r.Static("/uploads", filepath.Join(svc.store.Root(), "uploads"))

	api := r.Group("")
	api.Use(middleware.AuditLog())
	{
		// Applications
		api.GET("/applications", svc.applicationHandler.List)
		api.GET("/applications/:id", svc.applicationHandler.GetByID)
		api.POST("/applications", svc.applicationHandler.Create)
		api.PUT("/applications/:id", svc.applicationHandler.Update)
		api.DELETE("/applications/:id", svc.applicationHandler.Delete)
		api.GET("/applications/:id/file-info", svc.applicationHandler.FileInfo)

		downloads := api.Group("", downloadLimiter.Middleware())
		downloads.GET("/applications/:id/download", svc.applicationHandler.Download)
		downloads.POST("/applications/:id/download", svc.applicationHandler.Download)

		// Categories
		api.GET("/categories", svc.categoryHandler.List)
		api.GET("/categories/:id", svc.categoryHandler.GetByID)
		api.POST("/categories", svc.categoryHandler.Create)
		api.PUT("/categories/:id", svc.categoryHandler.Update)
		api.DELETE("/categories/:id", svc.categoryHandler.Delete)

		// Icons
		api.GET("/icons", svc.iconHandler.List)
		api.GET("/icons/system/create", svc.iconHandler.SeedSystem)
		api.POST("/icons/system", svc.iconHandler.SeedSystem)
		api.POST("/icons/custom", svc.iconHandler.Upload)
		api.POST("/icons/upload", svc.iconHandler.Upload)
		api.GET("/icons/:id", svc.iconHandler.GetByID)
		api.DELETE("/icons/:id", svc.iconHandler.Delete)

		// Users
		api.GET("/users", svc.userHandler.List)
		api.GET("/users/:id", svc.userHandler.GetByID)
		api.POST("/users", svc.userHandler.Create)
		api.PUT("/users/:id", svc.userHandler.Update)
		api.DELETE("/users/:id", svc.userHandler.Delete)

		// Auth
		api.POST("/auth/login", loginLimiter.Middleware(), svc.authHandler.Login)

		// System Logs
		api.GET("/system-logs", svc.systemLogHandler.List)
		api.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
	}
}
