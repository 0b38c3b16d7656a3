package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{userService: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List()
	if err != nil {
		response.Error(c, err, "Failed to retrieve users")
		return
	}
	response.Success(c, users, "Users retrieved successfully")
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	user, err := h.userService.GetByID(id)
	if err != nil {
		response.Error(c, err, "Failed to retrieve user")
		return
	}
	response.Success(c, user, "User retrieved successfully")
}

func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.userService.Create(&req)
	if err != nil {
		response.Error(c, err, "Failed to create user")
		return
	}
	response.Created(c, user, "User created successfully")
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.userService.Update(id, &req)
	if err != nil {
		response.Error(c, err, "Failed to update user")
		return
	}
	response.Success(c, user, "User updated successfully")
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	if err := h.userService.Delete(id); err != nil {
		response.Error(c, err, "Failed to delete user")
		return
	}
	response.Success(c, nil, "User deleted successfully")
}
