package documents

import (
	"context"
	"io"
	"time"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/domain"
)

// Repository persists documents of one Kind.
type Repository interface {
	Create(ctx context.Context, doc *entity.CashDocument) error
	GetByID(ctx context.Context, docID id.ID) (*entity.CashDocument, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*entity.CashDocument], error)
	MarkEmailed(ctx context.Context, doc *entity.CashDocument) error
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, a *entity.Attachment) error
	ListByDocuments(ctx context.Context, docIDs []id.ID) (map[id.ID][]entity.Attachment, error)
}

// ObjectStore keeps attachment bodies.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
}

// Printable is what a renderer needs to lay out a document.
type Printable struct {
	Title       string
	Number      string
	Date        time.Time
	Amount      string
	Description string
	PartyLabel  string
	PartyName   string
}

// Renderer turns a document into PDF bytes.
type Renderer interface {
	RenderPDF(ctx context.Context, p Printable) ([]byte, error)
}

// EmailAttachment is a file sent with an email.
type EmailAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email is an outgoing message.
type Email struct {
	To          string
	Subject     string
	Body        string
	Attachments []EmailAttachment
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// Upload is an incoming attachment.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
