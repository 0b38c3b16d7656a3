package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(svc *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: svc}
}

// GET /categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List()
	if err != nil {
		response.Error(c, err, "Failed to retrieve categories")
		return
	}
	response.Success(c, categories, "Categories retrieved successfully")
}

// GET /categories/:id
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(id)
	if err != nil {
		response.Error(c, err, "Failed to retrieve category")
		return
	}
	response.Success(c, category, "Category retrieved successfully")
}

// POST /categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req services.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	category, err := h.categoryService.Create(&req)
	if err != nil {
		response.Error(c, err, "Failed to create category")
		return
	}
	response.Created(c, category, "Category created successfully")
}

// PUT /categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}
	var req services.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	category, err := h.categoryService.Update(id, &req)
	if err != nil {
		response.Error(c, err, "Failed to update category")
		return
	}
	response.Success(c, category, "Category updated successfully")
}

// DELETE /categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(id); err != nil {
		response.Error(c, err, "Failed to delete category")
		return
	}
	response.Success(c, nil, "Category deleted successfully")
}
