package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cashdesk/internal/core/apperror"
)

// IdempotencyStatus is the state of a keyed request.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

const (
	idempotencyTable = "sys_idempotency"

	// A pending key untouched this long belongs to a request that died.
	defaultStalePendingAfter = time.Minute
)

// IdempotencyRecord is one row of sys_idempotency.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// IdempotencyReplay is a stored response returned instead of re-running a request.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore backs X-Idempotency-Key. A replayed create returns the
// stored response instead of allocating another document number.
type IdempotencyStore struct {
	txManager  *TxManager
	builder    squirrel.StatementBuilderType
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewIdempotencyStore creates a store whose keys live for ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		ttl:        ttl,
		staleAfter: defaultStalePendingAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type acquireOutcome int

const (
	outcomeAcquired acquireOutcome = iota
	outcomeReplay
	outcomeInFlight
	outcomeStale
	outcomeMismatch
)

// acquireRow is the RETURNING shape of the upsert in AcquireKey.
type acquireRow struct {
	IdempotencyRecord
	Inserted bool `db:"inserted"`
}

// decide classifies an existing key against the incoming request.
func (s *IdempotencyStore) decide(row acquireRow, userID, operation, requestHash string) acquireOutcome {
	if row.Inserted {
		return outcomeAcquired
	}
	if row.UserID != userID || row.Operation != operation || row.RequestHash != requestHash {
		return outcomeMismatch
	}
	switch row.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return outcomeReplay
	case IdempotencyStatusPending:
		if s.now().Sub(row.UpdatedAt) > s.staleAfter {
			return outcomeStale
		}
		return outcomeInFlight
	}
	return outcomeAcquired
}

// AcquireKey claims key for a request. It returns (nil, nil) when the caller
// should run the request, a replay when a final response is stored, or an
// error when the key is in flight or bound to a different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()

	var row acquireRow
	err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &row, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING idempotency_key, user_id, operation, status, request_hash,
			COALESCE(response, ''::bytea) AS response,
			COALESCE(response_status, 0) AS response_status,
			COALESCE(response_content_type, '') AS response_content_type,
			updated_at, (xmax = 0) AS inserted
	`, key, userID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	switch s.decide(row, userID, operation, requestHash) {
	case outcomeMismatch:
		return nil, apperror.NewIdempotencyMismatch(key).WithDetail("operation", operation)
	case outcomeReplay:
		return replayOf(row.IdempotencyRecord), nil
	case outcomeInFlight:
		return nil, apperror.NewIdempotencyConflict(key)
	case outcomeStale:
		return nil, s.reclaim(ctx, key, row.UpdatedAt, now)
	}
	return nil, nil
}

// reclaim takes over a stale pending key. The updated_at guard lets only one
// of several concurrent reclaimers win.
func (s *IdempotencyStore) reclaim(ctx context.Context, key string, seen, now time.Time) error {
	sql, args, err := s.builder.
		Update(idempotencyTable).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"idempotency_key": key,
			"status":          IdempotencyStatusPending,
			"updated_at":      seen,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewIdempotencyConflict(key)
	}
	return nil
}

func replayOf(rec IdempotencyRecord) *IdempotencyReplay {
	replay := &IdempotencyReplay{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Response,
	}
	if replay.StatusCode == 0 {
		replay.StatusCode = http.StatusOK
	}
	if replay.ContentType == "" {
		replay.ContentType = "application/json"
	}
	return replay
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey stores a final failure so replays return the same error.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

// ReleaseKey forgets a pending key after a retryable failure so the client
// may retry with the same key.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	sql, args, err := s.builder.
		Delete(idempotencyTable).
		Where(squirrel.Eq{"idempotency_key": key, "status": IdempotencyStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	body, err := encodeResponse(response)
	if err != nil {
		return err
	}

	sql, args, err := s.builder.
		Update(idempotencyTable).
		SetMap(map[string]any{
			"status":                status,
			"response":              body,
			"response_status":       statusCode,
			"response_content_type": contentType,
			"updated_at":            s.now(),
		}).
		Where(squirrel.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// encodeResponse accepts raw bytes as-is and JSON-encodes anything else.
func encodeResponse(response any) ([]byte, error) {
	switch v := response.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	b, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encode idempotent response: %w", err)
	}
	return b, nil
}

// CleanupExpired deletes keys past their TTL and reports how many went.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := s.builder.
		Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
