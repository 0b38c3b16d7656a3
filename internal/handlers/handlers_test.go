package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	store  *storage.Store
	users  *services.UserService
}

func newTestServer(t *testing.T) *testServer {
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

	store := storage.New(t.TempDir())
	queue := services.NewSyncQueue(services.StoreRemover(store))
	users := services.NewUserService(db)

	apps := NewApplicationHandler(services.NewApplicationService(db, store, queue))
	cats := NewCategoryHandler(services.NewCategoryService(db))
	icons := NewIconHandler(services.NewIconService(db, store, queue, 0))
	userH := NewUserHandler(users)
	auth := NewAuthHandler(services.NewAuthService(db))
	health := NewHealthHandler(db, store)

	r := gin.New()
	r.GET("/health", health.CheckHealth)
	r.GET("/metrics", Metrics())

	r.GET("/applications", apps.List)
	r.GET("/applications/:id", apps.GetByID)
	r.POST("/applications", apps.Create)
	r.PUT("/applications/:id", apps.Update)
	r.DELETE("/applications/:id", apps.Delete)
	r.GET("/applications/:id/download", apps.Download)
	r.POST("/applications/:id/download", apps.Download)
	r.GET("/applications/:id/file-info", apps.FileInfo)

	r.GET("/categories", cats.List)
	r.GET("/categories/:id", cats.GetByID)
	r.POST("/categories", cats.Create)
	r.PUT("/categories/:id", cats.Update)
	r.DELETE("/categories/:id", cats.Delete)

	r.GET("/icons", icons.List)
	r.GET("/icons/system/create", icons.SeedSystem)
	r.POST("/icons/system", icons.SeedSystem)
	r.POST("/icons/custom", icons.Upload)
	r.POST("/icons/upload", icons.Upload)
	r.GET("/icons/:id", icons.GetByID)
	r.DELETE("/icons/:id", icons.Delete)

	r.GET("/users", userH.List)
	r.GET("/users/:id", userH.GetByID)
	r.POST("/users", userH.Create)
	r.PUT("/users/:id", userH.Update)
	r.DELETE("/users/:id", userH.Delete)

	r.POST("/auth/login", auth.Login)

	return &testServer{router: r, db: db, store: store, users: users}
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if ct := w.Header().Get("Content-Type"); len(ct) >= 16 && ct[:16] == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) json(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

type formFileSpec struct {
	field, name string
	content     []byte
}

func (s *testServer) multipart(t *testing.T, method, path string, fields map[string]string, file *formFileSpec) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func (s *testServer) category(t *testing.T, name string) uint {
	t.Helper()
	w, env := s.json(t, http.MethodPost, "/categories", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c models.Category
	decode(t, env, &c)
	return c.ID
}
