package numerator

import (
	"context"

	corenumerator "cashdesk/internal/core/numerator"
)

// Store opens allocation transactions against the durable counter table.
type Store interface {
	// WithinTx runs fn in a fresh transaction that does not join any
	// transaction carried by ctx. It commits when fn returns nil and rolls
	// back otherwise. A commit failure is returned as an error.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CounterTx) error) error

	// LastSeq reads the committed last_seq of a key, 0 when the row is absent.
	LastSeq(ctx context.Context, key corenumerator.Key) (int64, error)
}

// CounterTx is the set of statements allowed inside an allocation transaction.
type CounterTx interface {
	// LockCounter takes the row lock for key. found is false when no row exists;
	// in that case nothing is locked.
	LockCounter(ctx context.Context, key corenumerator.Key) (found bool, err error)

	// InsertCounter creates the row with last_seq = 1 and returns 1.
	// A concurrent creator surfaces as a unique violation.
	InsertCounter(ctx context.Context, key corenumerator.Key) (int64, error)

	// IncrementCounter adds one to last_seq in the database and returns the new value.
	IncrementCounter(ctx context.Context, key corenumerator.Key) (int64, error)
}
