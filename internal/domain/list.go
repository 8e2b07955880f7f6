// Package domain holds types shared by the document services.
package domain

import "time"

// Page size bounds for list operations.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListFilter narrows a document listing.
type ListFilter struct {
	// Search matches document number or party name, case-insensitive.
	Search string
	// DateFrom and DateTo bound the business date, inclusive.
	DateFrom *time.Time
	DateTo   *time.Time

	Limit  int
	Offset int
}

// Normalize clamps pagination into the allowed range.
func (f ListFilter) Normalize() ListFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// ListResult is one page of items plus the unpaged total.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
