package services

import (
	"errors"
	"strings"
	"time"

	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/utils"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PublicUser is a user as exposed over the API; it never carries the password hash.
type PublicUser struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Badge      string     `json:"badge"`
	Phone      string     `json:"phone"`
	Department string     `json:"department"`
	Role       string     `json:"role"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type CreateUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Badge      string `json:"badge"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Badge      *string `json:"badge"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
}

func toPublicUser(u *models.User) (*PublicUser, error) {
	pub := &PublicUser{}
	if err := copier.Copy(pub, u); err != nil {
		return nil, apperr.Internal("Failed to map user", err)
	}
	return pub, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) List() ([]PublicUser, error) {
	var users []models.User
	if err := s.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve users", err)
	}
	out := make([]PublicUser, 0, len(users))
	if err := copier.Copy(&out, &users); err != nil {
		return nil, apperr.Internal("Failed to retrieve users", err)
	}
	return out, nil
}

func (s *UserService) GetByID(id uint) (*PublicUser, error) {
	user, err := s.find(s.db, id)
	if err != nil {
		return nil, err
	}
	return toPublicUser(user)
}

func (s *UserService) find(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("Failed to retrieve user", err)
	}
	return &user, nil
}

func (s *UserService) Create(req *CreateUserRequest) (*PublicUser, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperr.Validation("Name, email, and password are required")
	}

	role := models.RoleGuest
	if req.Role != "" {
		if !models.ValidRole(req.Role) {
			return nil, apperr.Validation("role must be admin or guest")
		}
		role = req.Role
	}

	if taken, err := s.emailTaken(s.db, email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.Conflict("Email already exists")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to create user", err)
	}

	user := &models.User{
		Name:       name,
		Email:      email,
		Password:   hash,
		Badge:      req.Badge,
		Phone:      req.Phone,
		Department: req.Department,
		Role:       role,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Email already exists")
		}
		return nil, apperr.Internal("Failed to create user", err)
	}

	logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user created")
	return toPublicUser(user)
}

// Update applies present, non-empty fields. Demoting the last admin is refused.
func (s *UserService) Update(id uint, req *UpdateUserRequest) (*PublicUser, error) {
	var updated *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.find(s.lockForUpdate(tx), id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if !isBlank(req.Name) {
			updates["name"] = strings.TrimSpace(*req.Name)
		}
		if !isBlank(req.Email) {
			email := normalizeEmail(*req.Email)
			if email != user.Email {
				taken, err := s.emailTaken(tx, email, id)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict("Email already exists")
				}
				updates["email"] = email
			}
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := utils.HashPassword(*req.Password)
			if err != nil {
				return apperr.Internal("Failed to update user", err)
			}
			updates["password"] = hash
		}
		if req.Badge != nil {
			updates["badge"] = *req.Badge
		}
		if req.Phone != nil {
			updates["phone"] = *req.Phone
		}
		if req.Department != nil {
			updates["department"] = *req.Department
		}
		if !isBlank(req.Role) && *req.Role != user.Role {
			if !models.ValidRole(*req.Role) {
				return apperr.Validation("role must be admin or guest")
			}
			if user.Role == models.RoleAdmin {
				if err := s.requireAnotherAdmin(tx, id, "Cannot demote the last admin user"); err != nil {
					return err
				}
			}
			updates["role"] = *req.Role
		}

		if len(updates) > 0 {
			if err := tx.Model(user).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperr.Conflict("Email already exists")
				}
				return apperr.Internal("Failed to update user", err)
			}
		}

		updated, err = s.find(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toPublicUser(updated)
}

// Delete removes a user. The admin count is checked inside the same transaction
// as the delete so two concurrent deletes cannot remove the last two admins.
func (s *UserService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.find(s.lockForUpdate(tx), id)
		if err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			if err := s.requireAnotherAdmin(tx, id, "Cannot delete the last admin user"); err != nil {
				return err
			}
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return apperr.Internal("Failed to delete user", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("User not found")
		}
		logger.Info().Uint("user_id", id).Msg("user deleted")
		return nil
	})
}

// EnsureAdmin creates the configured admin account when no admin exists.
func (s *UserService) EnsureAdmin(name, email, password string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if taken, err := s.emailTaken(s.db, normalizeEmail(email), 0); err != nil {
		return err
	} else if taken {
		// Promote the existing account rather than failing on the unique email.
		return s.db.Model(&models.User{}).Where("email = ?", normalizeEmail(email)).Update("role", models.RoleAdmin).Error
	}

	_, err := s.Create(&CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Infof("[Users] Created initial admin account %s", normalizeEmail(email))
	return nil
}

func (s *UserService) lockForUpdate(tx *gorm.DB) *gorm.DB {
	// sqlite locks the whole database for a write transaction and has no FOR UPDATE.
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (s *UserService) requireAnotherAdmin(tx *gorm.DB, exceptID uint, msg string) error {
	var admins []models.User
	if err := s.lockForUpdate(tx).
		Select("id").
		Where("role = ? AND id <> ?", models.RoleAdmin, exceptID).
		Find(&admins).Error; err != nil {
		return apperr.Internal("Failed to check admin users", err)
	}
	if len(admins) == 0 {
		return apperr.Conflict(msg)
	}
	return nil
}

func (s *UserService) emailTaken(db *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal("Failed to check email", err)
	}
	return count > 0, nil
}
