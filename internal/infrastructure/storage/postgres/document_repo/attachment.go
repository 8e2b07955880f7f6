package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/domain/documents"
	"cashdesk/internal/infrastructure/storage/postgres"
)

const attachmentsTable = "doc_attachments"

var attachmentColumns = postgres.Columns[entity.Attachment]()

// AttachmentRepo stores attachment metadata for one document category.
type AttachmentRepo struct {
	txm     *postgres.TxManager
	docType numerator.DocType
}

var _ documents.AttachmentRepository = (*AttachmentRepo)(nil)

// NewAttachmentRepo creates an attachment repository scoped to docType.
func NewAttachmentRepo(txm *postgres.TxManager, docType numerator.DocType) *AttachmentRepo {
	return &AttachmentRepo{txm: txm, docType: docType}
}

func (r *AttachmentRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts attachment metadata.
func (r *AttachmentRepo) Create(ctx context.Context, a *entity.Attachment) error {
	data := postgres.Values(a, attachmentColumns...)
	data["doc_type"] = string(a.DocType)

	sql, args, err := r.builder().
		Insert(attachmentsTable).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", attachmentsTable, err)
	}
	return nil
}

// ListByDocuments returns attachments grouped by document, oldest first.
func (r *AttachmentRepo) ListByDocuments(ctx context.Context, docIDs []id.ID) (map[id.ID][]entity.Attachment, error) {
	out := make(map[id.ID][]entity.Attachment, len(docIDs))
	if len(docIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.builder().
		Select(attachmentColumns...).
		From(attachmentsTable).
		Where(squirrel.Eq{"doc_type": string(r.docType), "document_id": docIDs}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []entity.Attachment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	for _, a := range rows {
		out[a.DocumentID] = append(out[a.DocumentID], a)
	}
	return out, nil
}
