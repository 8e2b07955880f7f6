// Package audit defines the audit trail contract for document actions.
package audit

import (
	"context"

	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionAttach Action = "attach"
	ActionEmail  Action = "email"
)

// Recorder appends entries to the audit trail.
// Implementations join the transaction carried by ctx.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// EnrichCreatedBy sets the author from the user in context.
// Use in BeforeCreate hooks. No-op when ctx carries no user.
func EnrichCreatedBy(ctx context.Context, entity any) error {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return nil
	}
	if e, ok := entity.(interface{ SetCreatedBy(string) }); ok {
		e.SetCreatedBy(userID)
	}
	return nil
}

// NopRecorder discards entries.
type NopRecorder struct{}

// LogChange implements Recorder.
func (NopRecorder) LogChange(context.Context, string, id.ID, Action, map[string]any) error {
	return nil
}
