package documents

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cashdesk/internal/core/apperror"
	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/core/tx"
	"cashdesk/internal/core/types"
	"cashdesk/internal/domain"
	"cashdesk/internal/domain/audit"
	"cashdesk/pkg/logger"
)

// Draft carries user input for a new document.
type Draft struct {
	Date        time.Time
	Amount      types.Money
	Description string
	Party       string
}

// Deps wires a Service to its collaborators.
type Deps struct {
	Repo        Repository
	Attachments AttachmentRepository
	Allocator   numerator.Allocator
	TxManager   tx.Manager
	Audit       audit.Recorder
	Objects     ObjectStore
	Renderer    Renderer
	Mailer      Mailer
}

// Service provides business operations for one cash document Kind.
type Service struct {
	kind        Kind
	repo        Repository
	attachments AttachmentRepository
	allocator   numerator.Allocator
	txManager   tx.Manager
	audit       audit.Recorder
	objects     ObjectStore
	renderer    Renderer
	mailer      Mailer
	hooks       *domain.Lifecycle[*entity.CashDocument]
	now         func() time.Time
}

// NewService creates a document service.
func NewService(kind Kind, deps Deps) *Service {
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	s := &Service{
		kind:        kind,
		repo:        deps.Repo,
		attachments: deps.Attachments,
		allocator:   deps.Allocator,
		txManager:   deps.TxManager,
		audit:       recorder,
		objects:     deps.Objects,
		renderer:    deps.Renderer,
		mailer:      deps.Mailer,
		hooks:       domain.NewLifecycle[*entity.CashDocument](),
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.hooks.On(domain.BeforeCreate, func(ctx context.Context, doc *entity.CashDocument) error {
		return audit.EnrichCreatedBy(ctx, doc)
	})
	return s
}

// Kind returns the document category served.
func (s *Service) Kind() Kind {
	return s.kind
}

// Hooks exposes the document lifecycle for registering callbacks.
func (s *Service) Hooks() *domain.Lifecycle[*entity.CashDocument] {
	return s.hooks
}

// Create validates the draft, allocates its number and persists it.
//
// The number is committed by the allocator before the insert starts. If the
// insert fails the number stays consumed and is never reissued.
func (s *Service) Create(ctx context.Context, draft Draft) (*entity.CashDocument, error) {
	date := draft.Date
	if date.IsZero() {
		date = s.now()
	}

	doc := entity.NewCashDocument(s.kind.DocType, date)
	doc.Amount = draft.Amount
	doc.Description = strings.TrimSpace(draft.Description)
	doc.Party = strings.TrimSpace(draft.Party)

	if err := s.hooks.Fire(ctx, domain.BeforeCreate, doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if doc.CreatedBy == "" {
		return nil, apperror.NewUnauthorized("authenticated user required")
	}

	number, err := s.allocator.Allocate(ctx, s.kind.DocType, doc.Date)
	if err != nil {
		return nil, fmt.Errorf("allocate number: %w", err)
	}
	doc.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", s.kind.EntityType, err)
		}
		return s.audit.LogChange(ctx, s.kind.EntityType, doc.ID, audit.ActionCreate, map[string]any{
			"number":      doc.Number,
			"date":        doc.Date,
			"amount":      doc.Amount.String(),
			"description": doc.Description,
			"party":       doc.Party,
		})
	})
	if err != nil {
		logger.Warn(ctx, "document number left unused", "number", number, "error", err)
		return nil, err
	}

	if err := s.hooks.Notify(ctx, domain.AfterCreate, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "number", doc.Number, "error", err)
	}

	logger.Info(ctx, "document created",
		"type", s.kind.DocType,
		"id", doc.ID,
		"number", doc.Number)

	return doc, nil
}

// GetByID returns a document with its attachments.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*entity.CashDocument, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	doc.DocType = s.kind.DocType

	byDoc, err := s.attachments.ListByDocuments(ctx, []id.ID{docID})
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	doc.Attachments = attachmentsOrEmpty(byDoc[docID])
	return doc, nil
}

// List returns documents newest first, each with its attachments.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*entity.CashDocument], error) {
	result, err := s.repo.List(ctx, filter.Normalize())
	if err != nil {
		return result, err
	}
	if len(result.Items) == 0 {
		result.Items = make([]*entity.CashDocument, 0)
		return result, nil
	}

	ids := make([]id.ID, len(result.Items))
	for i, doc := range result.Items {
		ids[i] = doc.ID
	}
	byDoc, err := s.attachments.ListByDocuments(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("list attachments: %w", err)
	}
	for _, doc := range result.Items {
		doc.DocType = s.kind.DocType
		doc.Attachments = attachmentsOrEmpty(byDoc[doc.ID])
	}
	return result, nil
}

// AttachFile stores upload under the document's folder and records it.
func (s *Service) AttachFile(ctx context.Context, docID id.ID, upload Upload) (*entity.Attachment, error) {
	if upload.Body == nil || strings.TrimSpace(upload.Name) == "" {
		return nil, apperror.NewValidation("file is required").WithDetail("field", "file")
	}

	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	att := entity.NewAttachment(doc, upload.Name, contentType, upload.Size)
	att.UploadedBy = appctx.GetUserID(ctx)

	if err := s.objects.Put(ctx, att.ObjectKey, contentType, upload.Body, upload.Size); err != nil {
		return nil, apperror.NewExternalService("object storage", err)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, att); err != nil {
			return fmt.Errorf("create attachment: %w", err)
		}
		return s.audit.LogChange(ctx, s.kind.EntityType, doc.ID, audit.ActionAttach, map[string]any{
			"attachmentId": att.ID,
			"objectKey":    att.ObjectKey,
			"size":         att.SizeBytes,
		})
	})
	if err != nil {
		logger.Error(ctx, "attachment stored but not recorded", "key", att.ObjectKey, "error", err)
		return nil, err
	}

	doc.Attachments = append(doc.Attachments, *att)
	if err := s.hooks.Notify(ctx, domain.AfterAttach, doc); err != nil {
		logger.Warn(ctx, "after-attach hook failed", "number", doc.Number, "error", err)
	}

	logger.Info(ctx, "attachment uploaded", "number", doc.Number, "key", att.ObjectKey)
	return att, nil
}

// RenderPDF renders a document. The returned document carries the number used
// for file names.
func (s *Service) RenderPDF(ctx context.Context, docID id.ID) ([]byte, *entity.CashDocument, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}

	pdf, err := s.renderer.RenderPDF(ctx, s.printable(doc))
	if err != nil {
		return nil, nil, apperror.NewExternalService("pdf renderer", err)
	}
	return pdf, doc, nil
}

// SendEmail renders the PDF, mails it to the given address and stamps the document.
func (s *Service) SendEmail(ctx context.Context, docID id.ID, to string) (*entity.CashDocument, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return nil, apperror.NewValidation("invalid email address").WithDetail("field", "to")
	}

	pdf, doc, err := s.RenderPDF(ctx, docID)
	if err != nil {
		return nil, err
	}

	msg := Email{
		To:      addr.Address,
		Subject: fmt.Sprintf("%s - %s", s.kind.Title, doc.Number),
		Body: fmt.Sprintf("Please find attached the %s document: %s.\n\nThank you.",
			s.kind.Title, doc.Number),
		Attachments: []EmailAttachment{{
			Filename:    doc.Number + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, apperror.NewExternalService("mailer", err)
	}

	var previousTo any
	if doc.EmailedTo != nil {
		previousTo = *doc.EmailedTo
	}
	doc.MarkEmailed(addr.Address, s.now())

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.MarkEmailed(ctx, doc); err != nil {
			return fmt.Errorf("mark emailed: %w", err)
		}
		return s.audit.LogChange(ctx, s.kind.EntityType, doc.ID, audit.ActionEmail,
			map[string]any{"emailedTo": map[string]any{"old": previousTo, "new": addr.Address}})
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Notify(ctx, domain.AfterEmail, doc); err != nil {
		logger.Warn(ctx, "after-email hook failed", "number", doc.Number, "error", err)
	}

	logger.Info(ctx, "document emailed", "number", doc.Number, "to", addr.Address)
	return doc, nil
}

// LastIssued reports the last sequence value committed for this Kind in year.
func (s *Service) LastIssued(ctx context.Context, year int) (int64, error) {
	return s.allocator.LastIssued(ctx, s.kind.DocType, year)
}

func (s *Service) printable(doc *entity.CashDocument) Printable {
	return Printable{
		Title:       s.kind.Title,
		Number:      doc.Number,
		Date:        doc.Date,
		Amount:      types.FormatMoney(doc.Amount),
		Description: doc.Description,
		PartyLabel:  s.kind.PartyLabel,
		PartyName:   doc.Party,
	}
}

func attachmentsOrEmpty(list []entity.Attachment) []entity.Attachment {
	if list == nil {
		return make([]entity.Attachment, 0)
	}
	return list
}
