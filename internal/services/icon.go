package services

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"gorm.io/gorm"
)

// DefaultMaxIconSize caps custom icon uploads when no limit is configured.
const DefaultMaxIconSize int64 = 5 * 1024 * 1024

var allowedIconTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/svg+xml": true,
	"image/webp":    true,
}

type IconService struct {
	db      *gorm.DB
	store   *storage.Store
	janitor assetJanitor
	maxSize int64
}

func NewIconService(db *gorm.DB, store *storage.Store, cleanup CleanupQueue, maxSize int64) *IconService {
	if maxSize <= 0 {
		maxSize = DefaultMaxIconSize
	}
	return &IconService{
		db:      db,
		store:   store,
		janitor: assetJanitor{store: store, cleanup: cleanup},
		maxSize: maxSize,
	}
}

// SeedReport summarizes a system icon seeding run.
type SeedReport struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Total    int `json:"total"`
}

func (s *IconService) List() ([]models.Icon, error) {
	var icons []models.Icon
	if err := s.db.Order("category ASC, name ASC").Find(&icons).Error; err != nil {
		return nil, apperr.Internal("failed to retrieve icons", err)
	}
	return icons, nil
}

// Search matches term case-insensitively against name, icon key and category.
// LIKE wildcards in term are not escaped.
func (s *IconService) Search(term string) ([]models.Icon, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List()
	}

	pattern := "%" + strings.ToLower(term) + "%"
	icons := []models.Icon{}
	err := s.db.
		Where("LOWER(name) LIKE ? OR LOWER(icon_key) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern).
		Order("category ASC, name ASC").
		Find(&icons).Error
	if err != nil {
		return nil, apperr.Internal("failed to search icons", err)
	}
	return icons, nil
}

func (s *IconService) GetByID(id uint) (*models.Icon, error) {
	var icon models.Icon
	if err := s.db.First(&icon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Icon not found")
		}
		return nil, apperr.Internal("failed to retrieve icon", err)
	}
	return &icon, nil
}

// SeedSystemIcons inserts built-in icons whose key has no system record yet.
// Existing records are never modified.
func (s *IconService) SeedSystemIcons() (*SeedReport, error) {
	report := &SeedReport{Total: len(systemIcons)}

	for _, def := range systemIcons {
		var count int64
		if err := s.db.Model(&models.Icon{}).
			Where("icon_key = ? AND type = ?", def.Key, models.IconTypeSystem).
			Count(&count).Error; err != nil {
			return nil, apperr.Internal("failed to create system icons", err)
		}
		if count > 0 {
			report.Existing++
			continue
		}

		icon := &models.Icon{
			Name:     def.Name,
			IconKey:  def.Key,
			Category: def.Category,
			Type:     models.IconTypeSystem,
		}
		if err := s.db.Create(icon).Error; err != nil {
			return nil, apperr.Internal("failed to create system icons", err)
		}
		report.Created++
	}

	if report.Created > 0 {
		logger.Infof("[Icons] Seeded %d system icons (%d already present)", report.Created, report.Existing)
	}
	return report, nil
}

// CreateCustomIcon stores an uploaded image and records it as a custom icon.
// name defaults to the file name without extension, category to "Custom".
func (s *IconService) CreateCustomIcon(file *FileUpload, name, category string) (*models.Icon, error) {
	if file == nil || file.Reader == nil {
		return nil, apperr.Validation("File is required")
	}
	if file.Size > s.maxSize {
		return nil, s.tooLarge()
	}

	reader, mediaType, err := detectIconType(file)
	if err != nil {
		return nil, apperr.Internal("failed to read icon upload", err)
	}
	if !allowedIconTypes[mediaType] {
		return nil, apperr.Validation("Only JPEG, PNG, SVG and WebP images are allowed")
	}

	// Read one byte past the cap so oversized bodies are caught even when the
	// declared size was missing or wrong.
	limited := &cappedReader{r: io.LimitReader(reader, s.maxSize+1), limit: s.maxSize}
	asset, err := s.store.Save(storage.IconsDir, storage.IconPrefix, file.FileName, limited)
	if err != nil {
		if errors.Is(err, errIconTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, apperr.Internal("failed to store icon file", err)
	}
	assetBytesStored.WithLabelValues("icon").Add(float64(asset.Size))

	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(file.FileName, filepath.Ext(file.FileName))
	}
	if strings.TrimSpace(category) == "" {
		category = "Custom"
	}

	icon := &models.Icon{
		Name:     name,
		IconKey:  asset.FileName,
		Category: category,
		Type:     models.IconTypeCustom,
		FilePath: &asset.RelativePath,
		FileName: &asset.FileName,
		FileSize: &asset.Size,
	}
	if err := s.db.Create(icon).Error; err != nil {
		s.janitor.remove(asset.RelativePath, "icon", 0)
		return nil, apperr.Internal("failed to create custom icon", err)
	}

	logger.Info().Uint("icon_id", icon.ID).Str("path", asset.RelativePath).Int64("size", asset.Size).Msg("custom icon stored")
	return icon, nil
}

// Delete removes a custom icon's file on a best-effort basis, detaches the icon
// from any applications, then deletes the record.
func (s *IconService) Delete(id uint) error {
	icon, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if icon.IsCustom() && icon.FilePath != nil {
		s.janitor.remove(*icon.FilePath, "icon", id)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Application{}).
			Where("icon_id = ?", id).
			Update("icon_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Icon{}, id).Error
	})
	if err != nil {
		return apperr.Internal("failed to delete icon", err)
	}

	logger.Info().Uint("icon_id", id).Str("type", icon.Type).Msg("icon deleted")
	return nil
}

// detectIconType returns the declared media type, or sniffs the content when the
// client sent none or a generic one. The returned reader replays sniffed bytes.
func detectIconType(file *FileUpload) (io.Reader, string, error) {
	declared := strings.ToLower(strings.TrimSpace(file.ContentType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return file.Reader, declared, nil
	}

	br := bufio.NewReaderSize(file.Reader, 3072)
	head, err := br.Peek(3072)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", err
	}
	mt := mimetype.Detect(bytes.Clone(head))
	detected := mt.String()
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	return br, detected, nil
}

func (s *IconService) tooLarge() error {
	if s.maxSize%(1<<20) == 0 {
		return apperr.Validation(fmt.Sprintf("Icon file exceeds the %d MiB limit", s.maxSize>>20))
	}
	return apperr.Validation(fmt.Sprintf("Icon file exceeds the %d byte limit", s.maxSize))
}

var errIconTooLarge = errors.New("icon exceeds size limit")

type cappedReader struct {
	r     io.Reader
	limit int64
	n     int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.limit {
		return n, errIconTooLarge
	}
	return n, err
}
