package numerator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"

	corenumerator "cashdesk/internal/core/numerator"
)

// memStore mimics sys_counters under READ COMMITTED with row locks:
// a lock or insert holds the key until the transaction ends, a lock on a
// missing row takes nothing, and an insert that finds a committed row
// fails with a unique violation.
type memStore struct {
	mu    sync.Mutex
	rows  map[corenumerator.Key]int64
	locks map[corenumerator.Key]*sync.Mutex

	// commitErr, when set, fails every commit.
	commitErr error
	// afterLock runs after each LockCounter call.
	afterLock func(key corenumerator.Key, found bool)

	txs     atomic.Int64
	inserts atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[corenumerator.Key]int64),
		locks: make(map[corenumerator.Key]*sync.Mutex),
	}
}

func (m *memStore) keyLock(key corenumerator.Key) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *memStore) row(key corenumerator.Key) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[key]
	return v, ok
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx CounterTx) error) error {
	m.txs.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: m}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	tx.commit()
	return nil
}

func (m *memStore) LastSeq(ctx context.Context, key corenumerator.Key) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, _ := m.row(key)
	return v, nil
}

type memTx struct {
	store  *memStore
	held   *sync.Mutex
	key    corenumerator.Key
	staged *int64
}

func (t *memTx) hold(key corenumerator.Key) {
	if t.held != nil {
		return
	}
	l := t.store.keyLock(key)
	l.Lock()
	t.held = l
	t.key = key
}

func (t *memTx) LockCounter(_ context.Context, key corenumerator.Key) (bool, error) {
	t.hold(key)
	_, found := t.store.row(key)
	if !found {
		t.held.Unlock()
		t.held = nil
	}
	if t.store.afterLock != nil {
		t.store.afterLock(key, found)
	}
	return found, nil
}

func (t *memTx) InsertCounter(_ context.Context, key corenumerator.Key) (int64, error) {
	t.hold(key)
	if _, exists := t.store.row(key); exists {
		return 0, &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value violates unique constraint"}
	}
	t.store.inserts.Add(1)
	one := int64(1)
	t.staged = &one
	return one, nil
}

func (t *memTx) IncrementCounter(_ context.Context, key corenumerator.Key) (int64, error) {
	if t.held == nil || t.key != key {
		return 0, errors.New("increment without row lock")
	}
	v, ok := t.store.row(key)
	if !ok {
		return 0, errors.New("increment of missing row")
	}
	v++
	t.staged = &v
	return v, nil
}

func (t *memTx) commit() {
	if t.staged == nil {
		return
	}
	t.store.mu.Lock()
	t.store.rows[t.key] = *t.staged
	t.store.mu.Unlock()
}

func (t *memTx) release() {
	if t.held != nil {
		t.held.Unlock()
		t.held = nil
	}
}
