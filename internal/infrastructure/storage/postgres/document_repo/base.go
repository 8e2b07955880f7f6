// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/domain"
	"cashdesk/internal/domain/documents"
	"cashdesk/internal/infrastructure/storage/postgres"
)

// Tables holding each cash document category.
const (
	ReceiptsTable = "doc_receipts"
	VouchersTable = "doc_vouchers"
)

var cashDocumentColumns = postgres.Columns[entity.CashDocument]()

// CashDocumentRepo stores receipts or vouchers, depending on its table.
type CashDocumentRepo struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

var _ documents.Repository = (*CashDocumentRepo)(nil)

// NewCashDocumentRepo creates a repository over tableName.
func NewCashDocumentRepo(txm *postgres.TxManager, tableName, entityName string) *CashDocumentRepo {
	return &CashDocumentRepo{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: cashDocumentColumns,
	}
}

// NewReceiptRepo creates the receipts repository.
func NewReceiptRepo(txm *postgres.TxManager) *CashDocumentRepo {
	return NewCashDocumentRepo(txm, ReceiptsTable, "receipt")
}

// NewVoucherRepo creates the payment vouchers repository.
func NewVoucherRepo(txm *postgres.TxManager) *CashDocumentRepo {
	return NewCashDocumentRepo(txm, VouchersTable, "voucher")
}

// Builder returns a new squirrel builder.
func (r *CashDocumentRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new document.
func (r *CashDocumentRepo) Create(ctx context.Context, doc *entity.CashDocument) error {
	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(postgres.Values(doc, r.selectCols...)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// GetByID retrieves a document by ID.
func (r *CashDocumentRepo) GetByID(ctx context.Context, docID id.ID) (*entity.CashDocument, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := &entity.CashDocument{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, docID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return doc, nil
}

// GetByNumber retrieves a document by its allocated number.
func (r *CashDocumentRepo) GetByNumber(ctx context.Context, number string) (*entity.CashDocument, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"number": number}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := &entity.CashDocument{}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, number)
		}
		return nil, fmt.Errorf("get by number: %w", err)
	}
	return doc, nil
}

// List retrieves documents newest first.
func (r *CashDocumentRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*entity.CashDocument], error) {
	result := domain.ListResult[*entity.CashDocument]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := applyListFilter(r.baseSelect(), filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at DESC", "number DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// MarkEmailed persists the email stamp of doc.
func (r *CashDocumentRepo) MarkEmailed(ctx context.Context, doc *entity.CashDocument) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set("emailed_at", doc.EmailedAt).
		Set("emailed_to", doc.EmailedTo).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, doc.ID.String())
	}
	return nil
}

func (r *CashDocumentRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

func applyListFilter(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"party": pattern},
		})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
