package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/infrastructure/http/v1/dto"
)

// SequenceHandler exposes read-only sequence state.
type SequenceHandler struct {
	*BaseHandler
	allocator numerator.Allocator
}

// NewSequenceHandler creates a sequence handler.
func NewSequenceHandler(base *BaseHandler, allocator numerator.Allocator) *SequenceHandler {
	return &SequenceHandler{BaseHandler: base, allocator: allocator}
}

// Get handles GET /sequences/:docType/:year
func (h *SequenceHandler) Get(c *gin.Context) {
	docType, err := numerator.ParseDocType(c.Param("docType"))
	if err != nil {
		h.Error(c, err)
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.Error(c, apperror.NewInvalidDate("year must be a number").WithDetail("year", c.Param("year")))
		return
	}

	last, err := h.allocator.LastIssued(c.Request.Context(), docType, year)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.SequenceResponse{
		DocType: docType.String(),
		Year:    year,
		LastSeq: last,
	}
	if last > 0 {
		resp.LastNumber = numerator.Format(numerator.Key{DocType: docType, Year: year}, last)
	}
	c.JSON(http.StatusOK, resp)
}
