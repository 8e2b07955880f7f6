package numerator

import (
	"context"
	"time"
)

// MockAllocator is a test implementation of Allocator.
// Use in unit tests to avoid database dependencies.
type MockAllocator struct {
	AllocateFunc   func(ctx context.Context, docType DocType, referenceDate time.Time) (string, error)
	LastIssuedFunc func(ctx context.Context, docType DocType, year int) (int64, error)
}

// Allocate implements Allocator.
func (m *MockAllocator) Allocate(ctx context.Context, docType DocType, referenceDate time.Time) (string, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx, docType, referenceDate)
	}
	key, err := KeyFor(docType, referenceDate)
	if err != nil {
		return "", err
	}
	return Format(key, 1), nil
}

// LastIssued implements Allocator.
func (m *MockAllocator) LastIssued(ctx context.Context, docType DocType, year int) (int64, error) {
	if m.LastIssuedFunc != nil {
		return m.LastIssuedFunc(ctx, docType, year)
	}
	return 0, nil
}

var _ Allocator = (*MockAllocator)(nil)
