package numerator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashdesk/internal/core/apperror"
	corenumerator "cashdesk/internal/core/numerator"
)

var (
	jan2024 = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	jun2025 = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
)

func TestAllocate_FirstCallCreatesCounter(t *testing.T) {
	store := newMemStore()
	svc := New(store)

	number, err := svc.Allocate(context.Background(), corenumerator.DocTypeCashReceipt, jan2024)

	require.NoError(t, err)
	assert.Equal(t, "CR-2024-000001", number)
	seq, ok := store.row(corenumerator.Key{DocType: corenumerator.DocTypeCashReceipt, Year: 2024})
	assert.True(t, ok)
	assert.Equal(t, int64(1), seq)
}

func TestAllocate_SequentialIsContiguous(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	var got []string
	for range 7 {
		number, err := svc.Allocate(ctx, corenumerator.DocTypePaymentVoucher, jan2024)
		require.NoError(t, err)
		got = append(got, number)
	}

	assert.Equal(t, "PV-2024-000001", got[0])
	assert.Equal(t, "PV-2024-000007", got[6])
	for i, number := range got {
		_, seq, err := corenumerator.Parse(number)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestAllocate_KeysAreIndependent(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	mustAllocate := func(docType corenumerator.DocType, date time.Time) string {
		number, err := svc.Allocate(ctx, docType, date)
		require.NoError(t, err)
		return number
	}

	assert.Equal(t, "CR-2024-000001", mustAllocate(corenumerator.DocTypeCashReceipt, jan2024))
	assert.Equal(t, "CR-2024-000002", mustAllocate(corenumerator.DocTypeCashReceipt, jan2024))
	assert.Equal(t, "PV-2024-000001", mustAllocate(corenumerator.DocTypePaymentVoucher, jan2024))
	assert.Equal(t, "CR-2025-000001", mustAllocate(corenumerator.DocTypeCashReceipt, jun2025))
	assert.Equal(t, "CR-2024-000003", mustAllocate(corenumerator.DocTypeCashReceipt, jan2024))
}

func TestAllocate_ConcurrentCallsAreUnique(t *testing.T) {
	svc := New(newMemStore())
	const n = 200

	results := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := svc.Allocate(context.Background(), corenumerator.DocTypeCashReceipt, jan2024)
			if assert.NoError(t, err) {
				results[i] = number
			}
		}()
	}
	wg.Wait()

	sort.Strings(results)
	for i, number := range results {
		assert.Equal(t, fmt.Sprintf("CR-2024-%06d", i+1), number)
	}
}

func TestAllocate_ConcurrentMixedKeys(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	dates := []time.Time{jan2024, jun2025}
	docTypes := []corenumerator.DocType{corenumerator.DocTypeCashReceipt, corenumerator.DocTypePaymentVoucher}

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := range 120 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := svc.Allocate(context.Background(), docTypes[i%2], dates[(i/2)%2])
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[number], "duplicate %s", number)
			seen[number] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 120)
	for _, d := range docTypes {
		for _, date := range dates {
			seq, _ := store.row(corenumerator.Key{DocType: d, Year: date.Year()})
			assert.Equal(t, int64(30), seq)
		}
	}
}

func TestAllocate_FirstInsertRace(t *testing.T) {
	store := newMemStore()
	svc := New(store)

	// Both transactions see no row before either inserts.
	var lockCalls atomic.Int64
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.afterLock = func(_ corenumerator.Key, _ bool) {
		if lockCalls.Add(1) <= 2 {
			barrier.Done()
			barrier.Wait()
		}
	}

	results := make([]string, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Allocate(context.Background(), corenumerator.DocTypeCashReceipt, jan2024)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	sort.Strings(results)
	assert.Equal(t, []string{"CR-2024-000001", "CR-2024-000002"}, results)

	seq, _ := store.row(corenumerator.Key{DocType: corenumerator.DocTypeCashReceipt, Year: 2024})
	assert.Equal(t, int64(2), seq)
	assert.Equal(t, int64(1), store.inserts.Load())
	assert.Equal(t, int64(3), store.txs.Load(), "loser retries exactly once")
}

func TestAllocate_CallerAbortStillConsumesNumber(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	callerTx := func() error {
		_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
		require.NoError(t, err)
		return errors.New("document insert failed")
	}
	require.Error(t, callerTx())

	number, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
	require.NoError(t, err)
	assert.Equal(t, "CR-2024-000002", number)
}

func TestAllocate_InvalidInputTouchesNoStore(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, corenumerator.DocType("XX"), jan2024)
	assert.ErrorIs(t, err, corenumerator.ErrInvalidDocType)

	_, err = svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, time.Time{})
	assert.ErrorIs(t, err, corenumerator.ErrInvalidDate)

	assert.Zero(t, store.txs.Load())
}

func TestAllocate_Exhausted(t *testing.T) {
	store := newMemStore()
	svc := New(store, WithMaxSeq(2))
	ctx := context.Background()

	for range 2 {
		_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
		require.NoError(t, err)
	}

	_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
	require.Error(t, err)
	assert.ErrorIs(t, err, corenumerator.ErrSequenceExhausted)
	assert.False(t, corenumerator.IsRetryable(err))

	seq, _ := store.row(corenumerator.Key{DocType: corenumerator.DocTypeCashReceipt, Year: 2024})
	assert.Equal(t, int64(2), seq, "rejected increment must roll back")

	number, err := svc.Allocate(ctx, corenumerator.DocTypePaymentVoucher, jan2024)
	require.NoError(t, err)
	assert.Equal(t, "PV-2024-000001", number)
}

func TestAllocate_CommitFailurePersistsNothing(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
	require.NoError(t, err)

	store.commitErr = &pgconn.PgError{Code: pgDeadlockDetected, Message: "deadlock detected"}
	_, err = svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
	require.Error(t, err)
	assert.ErrorIs(t, err, corenumerator.ErrLockConflict)
	assert.True(t, corenumerator.IsRetryable(err))

	store.commitErr = nil
	number, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
	require.NoError(t, err)
	assert.Equal(t, "CR-2024-000002", number)
}

func TestAllocate_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.commitErr = &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	svc := New(store)

	_, err := svc.Allocate(context.Background(), corenumerator.DocTypeCashReceipt, jan2024)

	require.Error(t, err)
	assert.ErrorIs(t, err, corenumerator.ErrStoreUnavailable)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.Equal(t, 503, apperror.GetHTTPStatus(err))
	_, ok := store.row(corenumerator.Key{DocType: corenumerator.DocTypeCashReceipt, Year: 2024})
	assert.False(t, ok)
}

func TestAllocate_CancelledContext(t *testing.T) {
	store := newMemStore()
	svc := New(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := store.row(corenumerator.Key{DocType: corenumerator.DocTypeCashReceipt, Year: 2024})
	assert.False(t, ok)
}

func TestAllocate_OtherStoreErrorsPropagate(t *testing.T) {
	store := newMemStore()
	cause := &pgconn.PgError{Code: "42P01", Message: "relation \"sys_counters\" does not exist"}
	store.commitErr = cause
	svc := New(store)

	_, err := svc.Allocate(context.Background(), corenumerator.DocTypeCashReceipt, jan2024)

	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "42P01", pgErr.Code)
	assert.False(t, corenumerator.IsRetryable(err))
}

func TestLastIssued(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	seq, err := svc.LastIssued(ctx, corenumerator.DocTypeCashReceipt, 2024)
	require.NoError(t, err)
	assert.Zero(t, seq)

	for range 3 {
		_, err := svc.Allocate(ctx, corenumerator.DocTypeCashReceipt, jan2024)
		require.NoError(t, err)
	}

	seq, err = svc.LastIssued(ctx, corenumerator.DocTypeCashReceipt, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)

	_, err = svc.LastIssued(ctx, corenumerator.DocTypeCashReceipt, 0)
	assert.ErrorIs(t, err, corenumerator.ErrInvalidDate)
}
