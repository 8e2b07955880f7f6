package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cashdesk/internal/core/tx"
	"cashdesk/pkg/logger"
)

var tracer = otel.Tracer("cashdesk/tx")

var _ tx.Manager = (*TxManager)(nil)

// TxOptions configures a transaction.
type TxOptions struct {
	IsolationLevel pgx.TxIsoLevel
	AccessMode     pgx.TxAccessMode

	// StatementTimeout cancels any single statement running longer; 0 keeps
	// the server default.
	StatementTimeout time.Duration

	// LockTimeout bounds waiting on row locks; 0 keeps the server default.
	// Postgres reports expiry as SQLSTATE 55P03.
	LockTimeout time.Duration
}

// DefaultTxOptions returns read-committed, read-write with a 30s statement timeout.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// TxManager runs functions inside transactions carried by context.
//
// RunInTransaction joins a transaction already present in ctx, so a document
// insert and its audit entry commit together. RunDetachedWithOptions always begins a
// fresh one on its own connection; the number allocator uses it so an issued
// number is committed before the caller's work starts.
type TxManager struct {
	pool     *pgxpool.Pool
	defaults TxOptions
}

// NewTxManager creates a transaction manager over pool.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, defaults: DefaultTxOptions()}
}

// WithDefaults replaces the options used by RunInTransaction.
func (m *TxManager) WithDefaults(opts TxOptions) *TxManager {
	m.defaults = opts
	return m
}

// Defaults returns the options used by RunInTransaction.
func (m *TxManager) Defaults() TxOptions {
	return m.defaults
}

type txKey struct{}

// RunInTransaction runs fn in the transaction from ctx, or in a new one
// committed when fn returns nil.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.defaults, fn)
}

// RunInTransactionWithOptions is RunInTransaction with explicit options. opts
// are ignored when ctx already carries a transaction.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if m.currentTx(ctx) != nil {
		return fn(ctx)
	}
	return m.begin(ctx, "transaction", opts, fn)
}

// RunDetachedWithOptions runs fn in a new transaction and commits before
// returning, whatever transaction ctx carries. Work committed this way
// survives a rollback of the caller's transaction.
func (m *TxManager) RunDetachedWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	outer := m.currentTx(ctx) != nil
	// A typed nil hides the outer transaction from fn and its repositories.
	ctx = context.WithValue(ctx, txKey{}, pgx.Tx(nil))
	return m.begin(ctx, "transaction.detached", opts, fn, attribute.Bool("tx.outer", outer))
}

func (m *TxManager) begin(
	ctx context.Context,
	spanName string,
	opts TxOptions,
	fn func(ctx context.Context) error,
	attrs ...attribute.KeyValue,
) (err error) {
	attrs = append(attrs, attribute.String("tx.isolation", string(opts.IsolationLevel)))
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	pgxTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := applyTimeouts(ctx, pgxTx, opts); err != nil {
		rollback(ctx, pgxTx, err)
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, pgxTx)); err != nil {
		rollback(ctx, pgxTx, err)
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rollback runs on a fresh context so a canceled request still releases its locks.
func rollback(ctx context.Context, pgxTx pgx.Tx, cause error) {
	if err := pgxTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "original_error", cause)
	}
}

// applyTimeouts scopes statement and lock timeouts to the transaction in one
// round trip.
func applyTimeouts(ctx context.Context, pgxTx pgx.Tx, opts TxOptions) error {
	stmt, lock := timeoutSetting(opts.StatementTimeout), timeoutSetting(opts.LockTimeout)
	if stmt == "" && lock == "" {
		return nil
	}
	_, err := pgxTx.Exec(ctx,
		`SELECT set_config('statement_timeout', COALESCE(NULLIF($1, ''), current_setting('statement_timeout')), true),
		        set_config('lock_timeout', COALESCE(NULLIF($2, ''), current_setting('lock_timeout')), true)`,
		stmt, lock)
	if err != nil {
		return fmt.Errorf("set transaction timeouts: %w", err)
	}
	return nil
}

// timeoutSetting renders d as a Postgres duration; "" means unchanged.
func timeoutSetting(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("%dms", max(d.Milliseconds(), 1))
}

func (m *TxManager) currentTx(ctx context.Context) pgx.Tx {
	if t, ok := ctx.Value(txKey{}).(pgx.Tx); ok && t != nil {
		return t
	}
	return nil
}

// Querier is satisfied by both pgx.Tx and the pool, so repositories work
// inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.currentTx(ctx); t != nil {
		return t
	}
	return m.pool
}
