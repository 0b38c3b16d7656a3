package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

type IconHandler struct {
	iconService *services.IconService
}

func NewIconHandler(svc *services.IconService) *IconHandler {
	return &IconHandler{iconService: svc}
}

// List returns all icons, or those matching ?search=
// GET /icons
func (h *IconHandler) List(c *gin.Context) {
	icons, err := h.iconService.Search(c.Query("search"))
	if err != nil {
		response.Error(c, err, "Failed to retrieve icons")
		return
	}
	response.Success(c, icons, "Icons retrieved successfully")
}

// GET /icons/:id
func (h *IconHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "icon")
	if !ok {
		return
	}
	icon, err := h.iconService.GetByID(id)
	if err != nil {
		response.Error(c, err, "Failed to retrieve icon")
		return
	}
	response.Success(c, icon, "Icon retrieved successfully")
}

// SeedSystem inserts any missing built-in icons
// POST /icons/system, GET /icons/system/create
func (h *IconHandler) SeedSystem(c *gin.Context) {
	report, err := h.iconService.SeedSystemIcons()
	if err != nil {
		response.Error(c, err, "Failed to create system icons")
		return
	}
	c.JSON(http.StatusCreated, response.Response{
		Status:  response.StatusSuccess,
		Data:    report,
		Message: "System icons created successfully",
	})
}

// Upload stores a custom icon image from the "file" field
// POST /icons/custom, POST /icons/upload
func (h *IconHandler) Upload(c *gin.Context) {
	file, closeFile, err := formFile(c, "file")
	if err != nil {
		response.BadRequest(c, "invalid file upload")
		return
	}
	defer closeFile()
	if file == nil {
		response.BadRequest(c, "File is required")
		return
	}

	icon, err := h.iconService.CreateCustomIcon(file, c.PostForm("name"), c.PostForm("category"))
	if err != nil {
		response.Error(c, err, "Failed to upload custom icon")
		return
	}
	response.Created(c, icon, "Custom icon uploaded successfully")
}

// DELETE /icons/:id
func (h *IconHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "icon")
	if !ok {
		return
	}
	if err := h.iconService.Delete(id); err != nil {
		response.Error(c, err, "Failed to delete icon")
		return
	}
	response.Success(c, nil, "Icon deleted successfully")
}
