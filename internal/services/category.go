package services

import (
	"errors"
	"strings"

	"github.com/gosimple/slug"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"gorm.io/gorm"
)

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// List returns all categories in id order with their application counts.
func (s *CategoryService) List() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("id ASC").Find(&categories).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve categories", err)
	}

	type countRow struct {
		CategoryID uint
		Total      int64
	}
	var rows []countRow
	if err := s.db.Model(&models.Application{}).
		Select("category_id, COUNT(*) AS total").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve categories", err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Total
	}
	for i := range categories {
		categories[i].ApplicationCount = counts[categories[i].ID]
	}
	return categories, nil
}

func (s *CategoryService) GetByID(id uint) (*models.Category, error) {
	return s.find(s.db, id)
}

func (s *CategoryService) find(db *gorm.DB, id uint) (*models.Category, error) {
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Category not found")
		}
		return nil, apperr.Internal("Failed to retrieve category", err)
	}
	if err := db.Model(&models.Application{}).Where("category_id = ?", id).Count(&category.ApplicationCount).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve category", err)
	}
	return &category, nil
}

func (s *CategoryService) Create(input *CategoryInput) (*models.Category, error) {
	if isBlank(input.Name) {
		return nil, apperr.Validation("Category name is required")
	}
	name := strings.TrimSpace(*input.Name)

	taken, err := s.nameTaken(name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Category already exists")
	}

	category := &models.Category{
		Name: name,
		Slug: slug.Make(name),
	}
	if input.Description != nil {
		category.Description = *input.Description
	}

	if err := s.db.Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Category already exists")
		}
		return nil, apperr.Internal("Failed to create category", err)
	}
	return category, nil
}

func (s *CategoryService) Update(id uint, input *CategoryInput) (*models.Category, error) {
	category, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if !isBlank(input.Name) {
		name := strings.TrimSpace(*input.Name)
		if name != category.Name {
			taken, err := s.nameTaken(name, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.Conflict("Category name already exists")
			}
			updates["name"] = name
			updates["slug"] = slug.Make(name)
		}
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Category{ID: id}).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperr.Conflict("Category name already exists")
			}
			return nil, apperr.Internal("Failed to update category", err)
		}
	}
	return s.GetByID(id)
}

// Delete refuses to remove a category that still has applications. An
// application added concurrently trips the foreign key and gets the same answer.
func (s *CategoryService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := s.find(tx, id)
		if err != nil {
			return err
		}
		if category.ApplicationCount > 0 {
			return errCategoryInUse()
		}

		result := tx.Delete(&models.Category{}, id)
		if result.Error != nil {
			return categoryDeleteError(result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("Category not found")
		}
		return nil
	})
}

func errCategoryInUse() error {
	return apperr.Conflict("Cannot delete category with existing applications")
}

func categoryDeleteError(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errCategoryInUse()
	}
	return apperr.Internal("Failed to delete category", err)
}

// nameTaken compares names exactly; the catalog treats "Tools" and "tools" as distinct.
func (s *CategoryService) nameTaken(name string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.Category{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal("Failed to check category name", err)
	}
	return count > 0, nil
}
