// Package apperror is the error type every layer returns to the HTTP edge.
// The edge renders Code, Message and Details as the JSON problem body and
// uses HTTPStatus as the response status.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// 5xx
	CodeInternal         = "INTERNAL_ERROR"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"

	// 400
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidDocType = "INVALID_DOC_TYPE"
	CodeInvalidDate    = "INVALID_DATE"

	// 422
	CodeSequenceExhausted = "SEQUENCE_EXHAUSTED"

	// 401
	CodeUnauthorized = "UNAUTHORIZED"

	// 404
	CodeNotFound = "NOT_FOUND"

	// 409
	CodeConflict            = "CONFLICT"
	CodeLockConflict        = "LOCK_CONFLICT"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"

	CodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
)

// AppError is a classified failure.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int `json:"-"`

	// Retryable marks transient failures. Nothing was committed, so the
	// client may resend the same request.
	Retryable bool `json:"retryable,omitempty"`

	Err error `json:"-"`
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail entry and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the wrapped error and returns e.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func (e *AppError) retryable() *AppError {
	e.Retryable = true
	return e
}

// NewValidation reports malformed input (400).
func NewValidation(message string) *AppError {
	return newError(CodeValidation, http.StatusBadRequest, message)
}

// NewInvalidDocType reports a document category outside the closed set (400).
func NewInvalidDocType(docType string) *AppError {
	return newError(CodeInvalidDocType, http.StatusBadRequest, fmt.Sprintf("unknown document type %q", docType)).
		WithDetail("docType", docType)
}

// NewInvalidDate reports a reference date that cannot scope a sequence (400).
func NewInvalidDate(message string) *AppError {
	return newError(CodeInvalidDate, http.StatusBadRequest, message)
}

// NewUnauthorized reports missing or bad credentials (401).
func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message)
}

// NewNotFound reports a missing entity (404).
func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, entity+" not found").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConflict reports a state conflict the client cannot fix by retrying (409).
func NewConflict(message string) *AppError {
	return newError(CodeConflict, http.StatusConflict, message)
}

// NewLockConflict wraps a deadlock or lock-wait timeout (409, retryable).
func NewLockConflict(err error) *AppError {
	return newError(CodeLockConflict, http.StatusConflict, "Resource is locked by a concurrent request. Please retry.").
		WithCause(err).
		retryable()
}

// NewIdempotencyConflict reports a request with the same key still in flight (409, retryable).
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotencyConflict, http.StatusConflict, "A request with this idempotency key is already being processed").
		WithDetail("key", key).
		retryable()
}

// NewIdempotencyMismatch reports a key reused for a different request (422).
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotencyMismatch, http.StatusUnprocessableEntity, "Idempotency key was already used for a different request").
		WithDetail("key", key)
}

// NewSequenceExhausted reports a sequence that would outgrow its printed width (422).
func NewSequenceExhausted(docType string, year int, limit int64) *AppError {
	return newError(CodeSequenceExhausted, http.StatusUnprocessableEntity, fmt.Sprintf("sequence %s-%04d exhausted", docType, year)).
		WithDetail("docType", docType).
		WithDetail("year", year).
		WithDetail("limit", limit)
}

// NewInternal hides err behind a generic message (500).
func NewInternal(err error) *AppError {
	return newError(CodeInternal, http.StatusInternalServerError, "Internal server error").WithCause(err)
}

// NewExternalService wraps a failure of the object store, PDF renderer or mailer (502).
func NewExternalService(service string, err error) *AppError {
	return newError(CodeExternalService, http.StatusBadGateway, service+" is unavailable").
		WithDetail("service", service).
		WithCause(err)
}

// NewStoreUnavailable wraps a transport failure to the database (503, retryable).
func NewStoreUnavailable(err error) *AppError {
	return newError(CodeStoreUnavailable, http.StatusServiceUnavailable, "Storage temporarily unavailable").
		WithCause(err).
		retryable()
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the status for err, 500 when unclassified.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a not-found AppError.
func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == CodeNotFound
}

// IsRetryable reports whether err is a retryable AppError.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
