package entity

import (
	"fmt"
	"path"
	"strings"
	"time"

	"cashdesk/internal/core/id"
	"cashdesk/internal/core/numerator"
)

// Attachment is a file stored in object storage and linked to a document.
type Attachment struct {
	ID           id.ID             `db:"id" json:"id"`
	DocType      numerator.DocType `db:"doc_type" json:"docType"`
	DocumentID   id.ID             `db:"document_id" json:"documentId"`
	ObjectKey    string            `db:"object_key" json:"objectKey"`
	OriginalName string            `db:"original_name" json:"originalName"`
	MimeType     string            `db:"mime_type" json:"mimeType"`
	SizeBytes    int64             `db:"size_bytes" json:"size"`
	UploadedBy   string            `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt    time.Time         `db:"created_at" json:"createdAt"`
}

// NewAttachment creates an attachment for doc and derives its object key.
func NewAttachment(doc *CashDocument, originalName, mimeType string, size int64) *Attachment {
	a := &Attachment{
		ID:           id.New(),
		DocType:      doc.DocType,
		DocumentID:   doc.ID,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    size,
		CreatedAt:    time.Now().UTC(),
	}
	a.ObjectKey = AttachmentKey(doc, a.ID, originalName)
	return a
}

// AttachmentKey lays files out as {docType}/{year}/{docNumber}/{id}-{name}.
func AttachmentKey(doc *CashDocument, attachmentID id.ID, originalName string) string {
	return fmt.Sprintf("%s/%04d/%s/%s-%s",
		doc.DocType, doc.Date.Year(), doc.Number, attachmentID, sanitizeFileName(originalName))
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
