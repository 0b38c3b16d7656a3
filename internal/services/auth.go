package services

import (
	"errors"
	"sync"
	"time"

	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/utils"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"gorm.io/gorm"
)

// dummyHash is compared against when the e-mail is unknown so that both
// failure paths spend the same bcrypt work.
var (
	dummyHash     string
	dummyHashOnce sync.Once
)

func unknownUserHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("appcatalog-unknown-user")
	})
	return dummyHash
}

type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User *PublicUser `json:"user"`
}

// ValidateCredentials checks email and password and records the login time.
func (s *AuthService) ValidateCredentials(email, password string) (*PublicUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal("Authentication failed", err)
		}
		utils.CheckPassword(password, unknownUserHash())
		logger.Info().Str("email", email).Msg("login rejected: unknown email")
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !utils.CheckPassword(password, user.Password) {
		logger.Info().Uint("user_id", user.ID).Msg("login rejected: wrong password")
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	now := time.Now()
	if err := s.db.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	return toPublicUser(&user)
}
