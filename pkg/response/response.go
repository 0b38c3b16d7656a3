package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/appcatalog/backend/pkg/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope wrapped around every API response.
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// exposeInternal controls whether the cause of an internal error is sent to clients.
var exposeInternal = true

// SetMode configures error detail exposure from the gin server mode.
// In release mode internal error causes are never sent to clients.
func SetMode(mode string) {
	exposeInternal = mode != gin.ReleaseMode
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound, apperr.KindFileMissing:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusOK, Response{
		Status:  StatusSuccess,
		Data:    data,
		Message: msg,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusCreated, Response{
		Status:  StatusSuccess,
		Data:    data,
		Message: msg,
	})
}

// Error sends an error response. Domain errors carry their own kind; anything else
// is treated as an internal error and described with fallback.
func Error(c *gin.Context, err error, fallback string) {
	kind := apperr.KindOf(err)
	resp := Response{Status: StatusError, Message: fallback}

	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		resp.Message = e.Message
	}
	if kind == apperr.KindInternal && exposeInternal && err != nil {
		resp.Error = err.Error()
	}

	c.JSON(StatusFor(kind), resp)
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Status: StatusError, Message: msg})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Status: StatusError, Message: msg})
}

func TooManyRequests(c *gin.Context, msg string) {
	c.JSON(http.StatusTooManyRequests, Response{Status: StatusError, Message: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Status: StatusError, Message: msg})
}
