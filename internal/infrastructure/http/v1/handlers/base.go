// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, bodyError(err))
		return false
	}
	return true
}

// DecodeJSON decodes the raw body with encoding/json so that condition
// documents go through their own decoder and report schema errors.
func (h *BaseHandler) DecodeJSON(c *gin.Context, obj any) bool {
	body, err := c.GetRawData()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read request body").WithCause(err))
		return false
	}
	if err := json.Unmarshal(body, obj); err != nil {
		h.Error(c, bodyError(err))
		return false
	}
	return true
}

// ParseCondition decodes a wire document field.
func (h *BaseHandler) ParseCondition(c *gin.Context, raw json.RawMessage) (*condition.Condition, bool) {
	cond, err := condition.Parse(raw)
	if err != nil {
		h.Error(c, bodyError(err))
		return nil, false
	}
	return cond, true
}

func bodyError(err error) error {
	var decErr *condition.DecodeError
	if errors.As(err, &decErr) {
		return apperror.NewSchemaMismatch(err).WithDetail("path", decErr.Path)
	}
	return apperror.NewValidation("invalid request body").WithDetail("error", err.Error())
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
