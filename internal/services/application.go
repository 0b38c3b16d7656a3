package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"gorm.io/gorm"
)

type ApplicationService struct {
	db      *gorm.DB
	store   *storage.Store
	janitor assetJanitor
}

func NewApplicationService(db *gorm.DB, store *storage.Store, cleanup CleanupQueue) *ApplicationService {
	return &ApplicationService{
		db:      db,
		store:   store,
		janitor: assetJanitor{store: store, cleanup: cleanup},
	}
}

// IconRef is an icon reference as sent by a client. Present distinguishes an
// omitted field from an explicit value.
type IconRef struct {
	Present bool
	Value   string
}

// Clears reports whether the reference is the explicit "no icon" sentinel.
func (r IconRef) Clears() bool {
	v := strings.TrimSpace(r.Value)
	return v == "" || strings.EqualFold(v, "null")
}

// ApplicationInput is the create/update payload. Nil fields are absent.
type ApplicationInput struct {
	Title       *string
	FullName    *string
	CategoryID  *uint
	Icon        IconRef
	Version     *string
	Description *string
	Status      *string
}

// FileInfo is the download-related subset of an application.
type FileInfo struct {
	FileName      *string `json:"file_name"`
	FileSize      *int64  `json:"file_size"`
	FileType      *string `json:"file_type"`
	DownloadCount int64   `json:"download_count"`
}

// Download is an open installer file ready to stream. The caller closes File.
type Download struct {
	File     *os.File
	FileName string
	Size     int64
}

func (s *ApplicationService) List() ([]models.Application, error) {
	var apps []models.Application
	if err := s.hydrated().Order("id ASC").Find(&apps).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve applications", err)
	}
	return apps, nil
}

func (s *ApplicationService) GetByID(id uint) (*models.Application, error) {
	var app models.Application
	if err := s.hydrated().First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Application not found")
		}
		return nil, apperr.Internal("failed to retrieve application", err)
	}
	return &app, nil
}

func (s *ApplicationService) hydrated() *gorm.DB {
	return s.db.Preload("Category").Preload("Icon")
}

func (s *ApplicationService) Create(input *ApplicationInput, file *FileUpload) (*models.Application, error) {
	if isBlank(input.Title) || isBlank(input.FullName) || input.CategoryID == nil || *input.CategoryID == 0 {
		return nil, apperr.Validation("Title, full name, and category are required")
	}
	if err := s.requireCategory(*input.CategoryID); err != nil {
		return nil, err
	}

	app := &models.Application{
		Title:      strings.TrimSpace(*input.Title),
		FullName:   strings.TrimSpace(*input.FullName),
		CategoryID: *input.CategoryID,
		Version:    models.DefaultApplicationVersion,
		Status:     models.ApplicationStatusActive,
	}
	if !isBlank(input.Version) {
		app.Version = strings.TrimSpace(*input.Version)
	}
	if input.Description != nil {
		app.Description = *input.Description
	}
	if !isBlank(input.Status) {
		if !models.ValidApplicationStatus(*input.Status) {
			return nil, apperr.Validation("status must be active or inactive")
		}
		app.Status = *input.Status
	}
	if input.Icon.Present {
		iconID, err := s.resolveIcon(input.Icon)
		if err != nil {
			return nil, err
		}
		app.IconID = iconID
	}

	if file != nil {
		if err := s.storeFile(app, file); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(app).Error; err != nil {
		if app.FilePath != nil {
			s.janitor.remove(*app.FilePath, "application", 0)
		}
		return nil, apperr.Internal("failed to create application", err)
	}

	logger.Info().Uint("application_id", app.ID).Str("title", app.Title).Msg("application created")
	return s.GetByID(app.ID)
}

// Update applies the fields present in input. Blank strings keep the stored value.
// A new file replaces the old one: the old asset is removed before the new one is
// written, so a crash in between leaves the record pointing at a missing file.
func (s *ApplicationService) Update(id uint, input *ApplicationInput, file *FileUpload) (*models.Application, error) {
	var existing models.Application
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Application not found")
		}
		return nil, apperr.Internal("failed to retrieve application", err)
	}

	updates := map[string]interface{}{}
	if !isBlank(input.Title) {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if !isBlank(input.FullName) {
		updates["full_name"] = strings.TrimSpace(*input.FullName)
	}
	if input.CategoryID != nil && *input.CategoryID != 0 && *input.CategoryID != existing.CategoryID {
		if err := s.requireCategory(*input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	if !isBlank(input.Version) {
		updates["version"] = strings.TrimSpace(*input.Version)
	}
	if !isBlank(input.Description) {
		updates["description"] = *input.Description
	}
	if !isBlank(input.Status) {
		if !models.ValidApplicationStatus(*input.Status) {
			return nil, apperr.Validation("status must be active or inactive")
		}
		updates["status"] = *input.Status
	}
	if input.Icon.Present {
		iconID, err := s.resolveIcon(input.Icon)
		if err != nil {
			return nil, err
		}
		updates["icon_id"] = iconID
	}

	if file != nil {
		if existing.FilePath != nil {
			logger.Info().Uint("application_id", id).Str("path", *existing.FilePath).Msg("replacing application file")
			s.janitor.remove(*existing.FilePath, "application", id)
		}
		replacement := &models.Application{}
		if err := s.storeFile(replacement, file); err != nil {
			logger.Error().Err(err).Uint("application_id", id).Msg("application file lost: old asset removed, new asset not stored")
			return nil, err
		}
		updates["file_name"] = replacement.FileName
		updates["file_path"] = replacement.FilePath
		updates["file_size"] = replacement.FileSize
		updates["file_type"] = replacement.FileType
	}

	if len(updates) > 0 {
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			if path, ok := updates["file_path"].(*string); ok && path != nil {
				s.janitor.remove(*path, "application", id)
			}
			return nil, apperr.Internal("failed to update application", err)
		}
	}

	return s.GetByID(id)
}

// Delete removes the installer file on a best-effort basis, then the record.
func (s *ApplicationService) Delete(id uint) error {
	var app models.Application
	if err := s.db.First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Application not found")
		}
		return apperr.Internal("failed to retrieve application", err)
	}

	if app.FilePath != nil {
		s.janitor.remove(*app.FilePath, "application", id)
	}

	result := s.db.Delete(&models.Application{}, id)
	if result.Error != nil {
		return apperr.Internal("failed to delete application", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("Application not found")
	}

	logger.Info().Uint("application_id", id).Msg("application deleted")
	return nil
}

// IncrementDownloadCount adds one to the counter in a single UPDATE statement.
func (s *ApplicationService) IncrementDownloadCount(id uint) (*models.Application, error) {
	result := s.db.Model(&models.Application{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	if result.Error != nil {
		return nil, apperr.Internal("failed to update download count", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("Application not found")
	}

	var app models.Application
	if err := s.db.First(&app, id).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve application", err)
	}
	return &app, nil
}

// Download opens the installer file and counts the download. The count is taken
// before any bytes are sent, so aborted transfers still count.
func (s *ApplicationService) Download(id uint) (*Download, error) {
	app, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if app.FilePath == nil || *app.FilePath == "" {
		return nil, apperr.NotFound("No file available for download")
	}

	f, info, err := s.store.Open(*app.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrAssetMissing) {
			logger.Warn().Uint("application_id", id).Str("path", *app.FilePath).Msg("recorded application file missing from storage")
			return nil, apperr.FileMissing("File not found on server")
		}
		return nil, apperr.Internal("failed to open application file", err)
	}

	if _, err := s.IncrementDownloadCount(id); err != nil {
		f.Close()
		return nil, err
	}
	downloadsTotal.Inc()

	name := fmt.Sprintf("application_%d.download", id)
	if app.FileName != nil && *app.FileName != "" {
		name = *app.FileName
	}

	return &Download{File: f, FileName: name, Size: info.Size()}, nil
}

func (s *ApplicationService) FileInfo(id uint) (*FileInfo, error) {
	app, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		FileName:      app.FileName,
		FileSize:      app.FileSize,
		FileType:      app.FileType,
		DownloadCount: app.DownloadCount,
	}, nil
}

func (s *ApplicationService) requireCategory(id uint) error {
	var count int64
	if err := s.db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Internal("failed to check category", err)
	}
	if count == 0 {
		return apperr.Validation("category not found")
	}
	return nil
}

// resolveIcon applies the icon policy shared by create and update: the clear
// sentinel and any reference that does not name an existing icon both yield nil.
func (s *ApplicationService) resolveIcon(ref IconRef) (*uint, error) {
	if ref.Clears() {
		return nil, nil
	}

	id, err := strconv.ParseUint(strings.TrimSpace(ref.Value), 10, 64)
	if err != nil || id == 0 {
		logger.Warn().Str("icon_id", ref.Value).Msg("ignoring malformed icon reference")
		return nil, nil
	}

	var icon models.Icon
	if err := s.db.Select("id").First(&icon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Uint64("icon_id", id).Msg("icon not found, clearing reference")
			return nil, nil
		}
		return nil, apperr.Internal("failed to check icon", err)
	}
	iconID := icon.ID
	return &iconID, nil
}

func (s *ApplicationService) storeFile(app *models.Application, file *FileUpload) error {
	asset, err := s.store.Save(storage.ApplicationsDir, storage.ApplicationPrefix, file.FileName, file.Reader)
	if err != nil {
		return apperr.Internal("failed to store application file", err)
	}
	assetBytesStored.WithLabelValues("application").Add(float64(asset.Size))

	fileType := storage.ClassifyType(filepath.Ext(file.FileName))
	app.FileName = &asset.OriginalName
	app.FilePath = &asset.RelativePath
	app.FileSize = &asset.Size
	app.FileType = &fileType
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
