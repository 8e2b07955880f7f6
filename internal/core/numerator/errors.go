package numerator

import (
	"errors"
	"fmt"

	"cashdesk/internal/core/apperror"
)

// Sentinels identifying allocation failures. They sit in the cause chain of
// the *apperror.AppError returned to callers, so errors.Is works on either.
var (
	ErrInvalidDocType      = errors.New("invalid document type")
	ErrInvalidDate         = errors.New("invalid reference date")
	ErrStoreUnavailable    = errors.New("counter store unavailable")
	ErrLockConflict        = errors.New("counter lock conflict")
	ErrConstraintViolation = errors.New("counter constraint violation")
	ErrSequenceExhausted   = errors.New("sequence exhausted")
)

// IsRetryable reports whether an allocation failure is transient.
// No number was issued either way.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrLockConflict)
}

func invalidDocType(code string) error {
	return apperror.NewInvalidDocType(code).WithCause(ErrInvalidDocType)
}

func invalidDate(msg string) error {
	return apperror.NewInvalidDate(msg).WithCause(ErrInvalidDate)
}

// StoreUnavailable wraps a transport failure talking to the counter store.
func StoreUnavailable(key Key, cause error) error {
	return apperror.NewStoreUnavailable(fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)).
		WithDetail("sequence", key.String())
}

// LockConflict wraps a deadlock, lock-wait or serialization failure.
func LockConflict(key Key, cause error) error {
	return apperror.NewLockConflict(fmt.Errorf("%w: %w", ErrLockConflict, cause)).
		WithDetail("sequence", key.String())
}

// ConstraintViolation wraps a unique-key race that survived the retry.
func ConstraintViolation(key Key, cause error) error {
	return apperror.NewConflict("document number could not be allocated").
		WithCause(fmt.Errorf("%w: %w", ErrConstraintViolation, cause)).
		WithDetail("sequence", key.String())
}

// SequenceExhausted rejects a value that would not fit SeqWidth digits.
func SequenceExhausted(key Key, limit int64) error {
	return apperror.NewSequenceExhausted(string(key.DocType), key.Year, limit).
		WithCause(ErrSequenceExhausted)
}
