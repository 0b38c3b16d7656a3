package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: svc}
}

// Login checks credentials and returns the user without issuing a token
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required")
		return
	}

	user, err := h.authService.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		response.Error(c, err, "Login failed. Please try again.")
		return
	}
	response.Success(c, services.LoginResponse{User: user}, "Login successful")
}
