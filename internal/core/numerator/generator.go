package numerator

import (
	"context"
	"time"
)

// Allocator hands out document numbers.
// This is the domain contract - implementations live in infrastructure layer.
//
// Every successful Allocate has durably committed its counter increment before
// returning, in a transaction of its own: a rollback of the caller's transaction
// leaves a gap, never a reissued number.
type Allocator interface {
	// Allocate returns the next number for (docType, referenceDate.Year()).
	// Pattern: CR-2024-000001.
	Allocate(ctx context.Context, docType DocType, referenceDate time.Time) (string, error)

	// LastIssued reports the last committed sequence value for a key, 0 if none.
	LastIssued(ctx context.Context, docType DocType, year int) (int64, error)
}
