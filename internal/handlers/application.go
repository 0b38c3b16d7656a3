package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"github.com/huangang/appcatalog/backend/pkg/response"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(svc *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: svc}
}

// List returns all applications
// GET /applications
func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.applicationService.List()
	if err != nil {
		response.Error(c, err, "Failed to retrieve applications")
		return
	}
	response.Success(c, apps, "Applications retrieved successfully")
}

// GetByID returns one application with its category and icon
// GET /applications/:id
func (h *ApplicationHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}

	app, err := h.applicationService.GetByID(id)
	if err != nil {
		response.Error(c, err, "Failed to retrieve application")
		return
	}
	response.Success(c, app, "Application retrieved successfully")
}

// Create accepts a multipart form with an optional installer in "file"
// POST /applications
func (h *ApplicationHandler) Create(c *gin.Context) {
	input, ok := bindApplicationInput(c)
	if !ok {
		return
	}
	file, closeFile, err := formFile(c, "file")
	if err != nil {
		response.BadRequest(c, "invalid file upload")
		return
	}
	defer closeFile()

	app, err := h.applicationService.Create(input, file)
	if err != nil {
		response.Error(c, err, "Failed to create application")
		return
	}
	response.Created(c, app, "Application created successfully")
}

// Update applies the submitted fields and replaces the installer if one is sent
// PUT /applications/:id
func (h *ApplicationHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}
	input, ok := bindApplicationInput(c)
	if !ok {
		return
	}
	file, closeFile, err := formFile(c, "file")
	if err != nil {
		response.BadRequest(c, "invalid file upload")
		return
	}
	defer closeFile()

	app, err := h.applicationService.Update(id, input, file)
	if err != nil {
		response.Error(c, err, "Failed to update application")
		return
	}
	response.Success(c, app, "Application updated successfully")
}

// Delete removes an application and its installer
// DELETE /applications/:id
func (h *ApplicationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}

	if err := h.applicationService.Delete(id); err != nil {
		response.Error(c, err, "Failed to delete application")
		return
	}
	response.Success(c, nil, "Application deleted successfully")
}

// Download streams the installer and counts the download
// GET|POST /applications/:id/download
func (h *ApplicationHandler) Download(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}

	dl, err := h.applicationService.Download(id)
	if err != nil {
		response.Error(c, err, "Failed to download application")
		return
	}
	defer dl.File.Close()

	logger.Info().Uint("application_id", id).Str("file", dl.FileName).Int64("size", dl.Size).Msg("serving download")

	c.DataFromReader(200, dl.Size, "application/octet-stream", dl.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(dl.FileName)),
	})
}

// FileInfo returns the installer metadata and download count
// GET /applications/:id/file-info
func (h *ApplicationHandler) FileInfo(c *gin.Context) {
	id, ok := parseID(c, "application")
	if !ok {
		return
	}

	info, err := h.applicationService.FileInfo(id)
	if err != nil {
		response.Error(c, err, "Failed to retrieve file information")
		return
	}
	response.Success(c, info, "File information retrieved successfully")
}

// bindApplicationInput reads application fields from a JSON body or from a
// multipart/urlencoded form. Fields left out stay nil.
func bindApplicationInput(c *gin.Context) (*services.ApplicationInput, bool) {
	if c.ContentType() == binding.MIMEJSON {
		return bindApplicationJSON(c)
	}

	input := &services.ApplicationInput{
		Title:       formField(c, "title"),
		FullName:    formField(c, "full_name", "fullName"),
		Version:     formField(c, "version"),
		Description: formField(c, "description"),
		Status:      formField(c, "status"),
	}
	if !setCategoryID(c, input, formField(c, "category_id", "categoryId")) {
		return nil, false
	}
	if raw := formField(c, "icon_id", "iconId"); raw != nil {
		input.Icon = services.IconRef{Present: true, Value: *raw}
	}
	return input, true
}

// applicationJSON accepts ids as numbers or strings; icon_id may also be null.
type applicationJSON struct {
	Title         *string         `json:"title"`
	FullName      *string         `json:"full_name"`
	FullNameCamel *string         `json:"fullName"`
	CategoryID    json.RawMessage `json:"category_id"`
	CategoryCamel json.RawMessage `json:"categoryId"`
	IconID        json.RawMessage `json:"icon_id"`
	IconCamel     json.RawMessage `json:"iconId"`
	Version       *string         `json:"version"`
	Description   *string         `json:"description"`
	Status        *string         `json:"status"`
}

func bindApplicationJSON(c *gin.Context) (*services.ApplicationInput, bool) {
	var req applicationJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid application payload")
		return nil, false
	}

	input := &services.ApplicationInput{
		Title:       req.Title,
		FullName:    req.FullName,
		Version:     req.Version,
		Description: req.Description,
		Status:      req.Status,
	}
	if input.FullName == nil {
		input.FullName = req.FullNameCamel
	}
	if !setCategoryID(c, input, rawField(req.CategoryID, req.CategoryCamel)) {
		return nil, false
	}
	if raw := rawField(req.IconID, req.IconCamel); raw != nil {
		input.Icon = services.IconRef{Present: true, Value: *raw}
	}
	return input, true
}

// rawField returns the first present JSON value as text: strings are unquoted,
// numbers and null are kept literally.
func rawField(values ...json.RawMessage) *string {
	for _, v := range values {
		if len(v) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return &s
		}
		text := string(bytes.TrimSpace(v))
		return &text
	}
	return nil
}

func setCategoryID(c *gin.Context, input *services.ApplicationInput, raw *string) bool {
	if raw == nil || trimmed(raw) == "" || trimmed(raw) == "null" {
		return true
	}
	id, err := strconv.ParseUint(trimmed(raw), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "category_id must be a positive integer")
		return false
	}
	categoryID := uint(id)
	input.CategoryID = &categoryID
	return true
}
