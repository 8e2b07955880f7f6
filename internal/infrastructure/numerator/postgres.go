package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"cashdesk/internal/core/id"
	corenumerator "cashdesk/internal/core/numerator"
	"cashdesk/internal/infrastructure/storage/postgres"
)

const countersTable = "sys_counters"

// PostgresStore keeps counters in sys_counters, one row per (doc_type, year).
type PostgresStore struct {
	txm     *postgres.TxManager
	opts    postgres.TxOptions
	builder squirrel.StatementBuilderType
}

// NewPostgresStore creates a counter store.
// lockTimeout bounds waiting on a contended counter row; 0 keeps the server default.
func NewPostgresStore(txm *postgres.TxManager, lockTimeout time.Duration) *PostgresStore {
	opts := txm.Defaults()
	opts.LockTimeout = lockTimeout
	return &PostgresStore{
		txm:     txm,
		opts:    opts,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ Store = (*PostgresStore)(nil)

// WithinTx implements Store on a detached transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx CounterTx) error) error {
	return s.txm.RunDetachedWithOptions(ctx, s.opts, func(ctx context.Context) error {
		return fn(ctx, &pgCounterTx{q: s.txm.GetQuerier(ctx), builder: s.builder})
	})
}

// LastSeq implements Store.
func (s *PostgresStore) LastSeq(ctx context.Context, key corenumerator.Key) (int64, error) {
	query, args, err := s.builder.
		Select("last_seq").
		From(countersTable).
		Where(keyPredicate(key)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var seq int64
	err = s.txm.GetQuerier(ctx).QueryRow(ctx, query, args...).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return seq, nil
}

type pgCounterTx struct {
	q       postgres.Querier
	builder squirrel.StatementBuilderType
}

func keyPredicate(key corenumerator.Key) squirrel.Eq {
	return squirrel.Eq{"doc_type": string(key.DocType), "year": key.Year}
}

func (t *pgCounterTx) LockCounter(ctx context.Context, key corenumerator.Key) (bool, error) {
	query, args, err := t.builder.
		Select("id").
		From(countersTable).
		Where(keyPredicate(key)).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var rowID id.ID
	err = t.q.QueryRow(ctx, query, args...).Scan(&rowID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *pgCounterTx) InsertCounter(ctx context.Context, key corenumerator.Key) (int64, error) {
	query, args, err := t.builder.
		Insert(countersTable).
		Columns("id", "doc_type", "year", "last_seq").
		Values(id.New(), string(key.DocType), key.Year, 1).
		Suffix("RETURNING last_seq").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var seq int64
	if err := t.q.QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (t *pgCounterTx) IncrementCounter(ctx context.Context, key corenumerator.Key) (int64, error) {
	query, args, err := t.builder.
		Update(countersTable).
		Set("last_seq", squirrel.Expr("last_seq + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(keyPredicate(key)).
		Suffix("RETURNING last_seq").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var seq int64
	if err := t.q.QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
