package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database, asset storage and cleanup queue.
type HealthHandler struct {
	db    *gorm.DB
	store *storage.Store
}

func NewHealthHandler(db *gorm.DB, store *storage.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	storageStatus := "ok"
	if info, err := os.Stat(h.store.Root()); err != nil {
		storageStatus = "error: " + err.Error()
	} else if !info.IsDir() {
		storageStatus = "error: storage root is not a directory"
	}
	if storageStatus != "ok" && overall == "healthy" {
		overall = "degraded"
	}

	queueMode := "sync"
	if q := services.GetCleanupQueue(); q != nil && q.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(code, gin.H{
		"status":  overall,
		"service": "appcatalog",
		"components": gin.H{
			"database":     dbStatus,
			"storage":      storageStatus,
			"cleanup_mode": queueMode,
		},
	})
}
