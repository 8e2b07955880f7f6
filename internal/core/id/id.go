// Package id provides the time-ordered UUIDv7 identifiers used by every table.
package id

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ID is the primary key type of documents, attachments and audit entries.
type ID = uuid.UUID

// ErrNil is returned by Parse for the all-zero UUID, which never identifies a row.
var ErrNil = errors.New("nil id")

// New generates a UUIDv7, so primary keys sort by creation time.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse reads an ID from user input. Surrounding spaces are ignored.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, err
	}
	if v == uuid.Nil {
		return uuid.Nil, ErrNil
	}
	return v, nil
}

// IsNil reports whether v is the zero ID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
