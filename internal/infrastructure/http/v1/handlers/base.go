package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/id"
	"cashdesk/internal/infrastructure/http/v1/middleware"
)

// BaseHandler carries the request plumbing shared by document and sequence handlers.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON decodes the request body into obj and runs its binding tags.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, obj, binding.JSON, "invalid request body")
}

// BindQuery decodes query parameters into obj and runs its binding tags.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, obj, binding.Query, "invalid query parameters")
}

func (h *BaseHandler) bind(c *gin.Context, obj any, b binding.Binding, message string) bool {
	err := c.ShouldBindWith(obj, b)
	if err == nil {
		return true
	}

	appErr := apperror.NewValidation(message).WithDetail("error", err.Error())
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		appErr.WithDetail("field", typeErr.Field)
	}
	h.Error(c, appErr)
	return false
}

// ParseID reads the :id path parameter.
func (h *BaseHandler) ParseID(c *gin.Context) (id.ID, bool) {
	raw := c.Param("id")
	docID, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", raw))
		return id.ID{}, false
	}
	return docID, true
}

// Error hands err to middleware.ErrorHandler and stops the chain.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Created writes 201 and records the body for idempotent replay.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.respond(c, http.StatusCreated, data)
}

// OK writes 200 and records the body for idempotent replay.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.respond(c, http.StatusOK, data)
}

func (h *BaseHandler) respond(c *gin.Context, status int, data any) {
	middleware.CompleteIdempotency(c, status, binding.MIMEJSON, data)
	c.JSON(status, data)
}
