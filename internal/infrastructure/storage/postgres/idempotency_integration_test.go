//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/infrastructure/storage/postgres"
	"cashdesk/internal/testutil/pgtest"
)

const createReceipt = "POST /api/v1/receipts"

func newIdempotencyStore(t *testing.T, ttl time.Duration) (*postgres.IdempotencyStore, *postgres.Pool) {
	t.Helper()
	pool := pgtest.New(t)
	return postgres.NewIdempotencyStore(postgres.NewTxManager(pool), ttl), pool
}

func TestIdempotency_CompleteThenReplay(t *testing.T) {
	store, _ := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	replay, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	require.Nil(t, replay)

	require.NoError(t, store.CompleteKey(ctx, "k1", 201, "application/json", map[string]string{"number": "CR-2024-000001"}))

	replay, err = store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.JSONEq(t, `{"number":"CR-2024-000001"}`, string(replay.Body))
}

func TestIdempotency_PendingKeyConflicts(t *testing.T) {
	store, _ := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)

	_, err = store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIdempotencyConflict, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestIdempotency_MismatchedRequest(t *testing.T) {
	store, _ := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)

	for _, tc := range []struct{ user, op, hash string }{
		{"u2", createReceipt, "h1"},
		{"u1", "POST /api/v1/vouchers", "h1"},
		{"u1", createReceipt, "h2"},
	} {
		_, err := store.AcquireKey(ctx, "k1", tc.user, tc.op, tc.hash)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeIdempotencyMismatch, appErr.Code)
	}
}

func TestIdempotency_ReleaseAllowsRetry(t *testing.T) {
	store, _ := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	require.NoError(t, store.ReleaseKey(ctx, "k1"))

	replay, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestIdempotency_FailedOutcomeIsReplayed(t *testing.T) {
	store, _ := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	require.NoError(t, store.FailKey(ctx, "k1", 422, "application/json", map[string]string{"code": "SEQUENCE_EXHAUSTED"}))

	replay, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 422, replay.StatusCode)
}

func TestIdempotency_StalePendingIsReclaimed(t *testing.T) {
	store, pool := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "UPDATE sys_idempotency SET updated_at = NOW() - INTERVAL '10 minutes'")
	require.NoError(t, err)

	replay, err := store.AcquireKey(ctx, "k1", "u1", createReceipt, "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestIdempotency_CleanupExpired(t *testing.T) {
	store, pool := newIdempotencyStore(t, time.Hour)
	ctx := context.Background()

	for _, key := range []string{"old", "fresh"} {
		_, err := store.AcquireKey(ctx, key, "u1", createReceipt, "h")
		require.NoError(t, err)
	}
	_, err := pool.Exec(ctx, "UPDATE sys_idempotency SET expires_at = NOW() - INTERVAL '1 minute' WHERE idempotency_key = 'old'")
	require.NoError(t, err)

	n, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
