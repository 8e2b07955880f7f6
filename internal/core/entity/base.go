// Package entity provides the cash document entities.
package entity

import (
	"time"

	"cashdesk/internal/core/id"
)

// BaseDocument holds the bookkeeping columns shared by every document table.
type BaseDocument struct {
	ID id.ID `db:"id" json:"id"`

	// Version increases on every update after insert.
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// CreatedBy is the staff user ID that issued the document.
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`
}

// NewBaseDocument stamps a fresh ID and creation time.
func NewBaseDocument() BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records a modification.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// SetCreatedBy records the author of the document.
func (b *BaseDocument) SetCreatedBy(userID string) {
	b.CreatedBy = userID
}
