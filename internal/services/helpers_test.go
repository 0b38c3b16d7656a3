package services

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db    *gorm.DB
	store *storage.Store
	apps  *ApplicationService
	icons *IconService
	cats  *CategoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	store := storage.New(t.TempDir())
	queue := NewSyncQueue(StoreRemover(store))
	return &testEnv{
		db:    db,
		store: store,
		apps:  NewApplicationService(db, store, queue),
		icons: NewIconService(db, store, queue, 0),
		cats:  NewCategoryService(db),
	}
}

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := e.cats.Create(&CategoryInput{Name: &name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) application(t *testing.T, categoryID uint, file *FileUpload) *models.Application {
	t.Helper()
	app, err := e.apps.Create(&ApplicationInput{
		Title:      strPtr("Editor"),
		FullName:   strPtr("Text Editor"),
		CategoryID: &categoryID,
	}, file)
	require.NoError(t, err)
	return app
}

func upload(name, content string) *FileUpload {
	return &FileUpload{FileName: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func strPtr(s string) *string { return &s }
