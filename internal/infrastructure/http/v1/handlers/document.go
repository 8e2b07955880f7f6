package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/domain"
	"cashdesk/internal/domain/documents"
	"cashdesk/internal/infrastructure/http/v1/dto"
)

// DocumentService is the part of a document service the handler needs.
type DocumentService interface {
	GetByID(ctx context.Context, docID id.ID) (*entity.CashDocument, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*entity.CashDocument], error)
	AttachFile(ctx context.Context, docID id.ID, upload documents.Upload) (*entity.Attachment, error)
	RenderPDF(ctx context.Context, docID id.ID) ([]byte, *entity.CashDocument, error)
	SendEmail(ctx context.Context, docID id.ID, to string) (*entity.CashDocument, error)
}

// DocumentHandlerConfig configures a DocumentHandler.
type DocumentHandlerConfig[CreateDTO any] struct {
	Service DocumentService
	// Create numbers and stores a document from a bound request.
	Create func(ctx context.Context, req CreateDTO) (*entity.CashDocument, error)
	// MapToDTO renders a document for the client.
	MapToDTO func(doc *entity.CashDocument) dto.DocumentResponse
}

// DocumentHandler provides HTTP handlers shared by receipts and vouchers.
type DocumentHandler[CreateDTO any] struct {
	*BaseHandler
	service  DocumentService
	create   func(ctx context.Context, req CreateDTO) (*entity.CashDocument, error)
	mapToDTO func(doc *entity.CashDocument) dto.DocumentResponse
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler[CreateDTO any](base *BaseHandler, cfg DocumentHandlerConfig[CreateDTO]) *DocumentHandler[CreateDTO] {
	return &DocumentHandler[CreateDTO]{
		BaseHandler: base,
		service:     cfg.Service,
		create:      cfg.Create,
		mapToDTO:    cfg.MapToDTO,
	}
}

// Create handles POST /{entity}
func (h *DocumentHandler[CreateDTO]) Create(c *gin.Context) {
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Location", c.FullPath()+"/"+doc.ID.String())
	h.Created(c, h.mapToDTO(doc))
}

// Get handles GET /{entity}/:id
func (h *DocumentHandler[CreateDTO]) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h.mapToDTO(doc))
}

// List handles GET /{entity}
func (h *DocumentHandler[CreateDTO]) List(c *gin.Context) {
	var q dto.ListDocumentsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DocumentResponse, 0, len(result.Items))
	for _, doc := range result.Items {
		items = append(items, h.mapToDTO(doc))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.DocumentResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// Attach handles POST /{entity}/:id/attachments (multipart field "file").
func (h *DocumentHandler[CreateDTO]) Attach(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("file is required").WithDetail("field", "file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot read uploaded file").WithCause(err))
		return
	}
	defer f.Close()

	att, err := h.service.AttachFile(c.Request.Context(), docID, documents.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromAttachment(*att))
}

// PDF handles GET /{entity}/:id/pdf
func (h *DocumentHandler[CreateDTO]) PDF(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	pdf, doc, err := h.service.RenderPDF(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Number+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Email handles POST /{entity}/:id/email
func (h *DocumentHandler[CreateDTO]) Email(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.SendEmailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.SendEmail(c.Request.Context(), docID, req.To)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, h.mapToDTO(doc))
}
