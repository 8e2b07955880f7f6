// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"cashdesk/internal/core/apperror"
)

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// ParseDate accepts a plain date or an RFC 3339 timestamp. Timestamps are
// normalized to UTC so the sequence year does not depend on the client's
// offset. Empty input yields the zero time.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperror.NewValidation("invalid date, expected YYYY-MM-DD").
		WithDetail("field", field).
		WithDetail("value", value)
}

func optionalDate(field, value string) (*time.Time, error) {
	t, err := ParseDate(field, value)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
