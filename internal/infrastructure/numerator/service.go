// Package numerator provides PostgreSQL implementation of document auto-numbering.
// This is the infrastructure layer - it implements core/numerator.Allocator interface.
package numerator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cashdesk/internal/core/apperror"
	corenumerator "cashdesk/internal/core/numerator"
	"cashdesk/pkg/logger"
)

var tracer = otel.Tracer("cashdesk/numerator")

// Service allocates document numbers from durable per-key counters.
//
// Each allocation runs in its own transaction: lock the counter row, create it
// with last_seq = 1 or increment it in the database, commit. The row lock is
// the only serialization point and different keys never contend.
type Service struct {
	store  Store
	maxSeq int64
}

// Ensure compile-time interface compliance.
var _ corenumerator.Allocator = (*Service)(nil)

// Option configures Service.
type Option func(*Service)

// WithMaxSeq lowers the exhaustion limit. Values above MaxSeq are ignored.
func WithMaxSeq(limit int64) Option {
	return func(s *Service) {
		if limit > 0 && limit <= corenumerator.MaxSeq {
			s.maxSeq = limit
		}
	}
}

// New creates a numerator service over the given counter store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, maxSeq: corenumerator.MaxSeq}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate returns the next number for (docType, referenceDate.Year()).
// Pattern: CR-2024-000001.
//
// The counter increment is committed before Allocate returns, independent of
// any transaction carried by ctx.
func (s *Service) Allocate(ctx context.Context, docType corenumerator.DocType, referenceDate time.Time) (string, error) {
	if s == nil || s.store == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key, err := corenumerator.KeyFor(docType, referenceDate)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "numerator.allocate",
		trace.WithAttributes(
			attribute.String("numerator.doc_type", string(key.DocType)),
			attribute.Int("numerator.year", key.Year),
		))
	defer span.End()

	seq, err := s.allocate(ctx, key)
	if isUniqueViolation(err) {
		// Another caller created the row between our lock attempt and insert.
		// The row exists now, so the second attempt takes the increment path.
		logger.Warn(ctx, "counter created concurrently, retrying as increment", "sequence", key.String())
		span.AddEvent("retry_as_increment")
		seq, err = s.allocate(ctx, key)
	}
	if err != nil {
		err = s.translate(ctx, key, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		return "", err
	}

	number := corenumerator.Format(key, seq)
	span.SetAttributes(attribute.String("numerator.number", number))
	logger.Debug(ctx, "document number allocated", "number", number)
	return number, nil
}

// allocate runs one lock-then-insert-or-increment transaction.
func (s *Service) allocate(ctx context.Context, key corenumerator.Key) (int64, error) {
	var seq int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx CounterTx) error {
		found, err := tx.LockCounter(ctx, key)
		if err != nil {
			return fmt.Errorf("lock counter: %w", err)
		}

		if found {
			seq, err = tx.IncrementCounter(ctx, key)
			if err != nil {
				return fmt.Errorf("increment counter: %w", err)
			}
		} else {
			seq, err = tx.InsertCounter(ctx, key)
			if err != nil {
				return fmt.Errorf("insert counter: %w", err)
			}
		}

		// Returning an error rolls the increment back.
		if seq > s.maxSeq {
			return corenumerator.SequenceExhausted(key, s.maxSeq)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// translate maps store failures onto the allocation error taxonomy.
func (s *Service) translate(ctx context.Context, key corenumerator.Key, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("allocate %s: %w", key, ctxErr)
	}

	switch classify(err) {
	case classLockConflict:
		logger.Warn(ctx, "counter lock conflict", "sequence", key.String(), "error", err)
		return corenumerator.LockConflict(key, err)
	case classUnavailable:
		logger.Error(ctx, "counter store unavailable", "sequence", key.String(), "error", err)
		return corenumerator.StoreUnavailable(key, err)
	case classConstraint:
		logger.Error(ctx, "counter constraint violated after retry", "sequence", key.String(), "error", err)
		return corenumerator.ConstraintViolation(key, err)
	default:
		logger.Error(ctx, "counter allocation failed", "sequence", key.String(), "error", err)
		return fmt.Errorf("allocate %s: %w", key, err)
	}
}

// LastIssued reads the committed counter without locking it.
func (s *Service) LastIssued(ctx context.Context, docType corenumerator.DocType, year int) (int64, error) {
	key, err := corenumerator.KeyFor(docType, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return 0, err
	}

	seq, err := s.store.LastSeq(ctx, key)
	if err != nil {
		return 0, s.translate(ctx, key, err)
	}
	return seq, nil
}
