package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/core/id"
	"cashdesk/internal/domain/audit"
)

func TestAuditService_CompressRoundTrip(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	large, err := json.Marshal(map[string]string{"description": strings.Repeat("cash ", 4096)})
	require.NoError(t, err)

	entry := AuditEntry{Changes: large}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(large))

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(entry.ChangesCompressed, nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(large), string(plain))
}

func TestAuditService_SmallChangesStayPlain(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	entry := AuditEntry{Changes: json.RawMessage(`{"number":"CR-2024-000001"}`)}
	svc.compress(&entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.Nil(t, entry.ChangesCompressed)
	assert.NotEmpty(t, entry.Changes)
}

func TestAuditService_PrepareFillsFromContext(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-9", Email: "clerk@example.com"})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})

	entry := AuditEntry{Action: audit.ActionCreate}
	svc.prepare(ctx, &entry)

	assert.Equal(t, "u-9", entry.UserID)
	assert.Equal(t, "clerk@example.com", entry.UserEmail)
	assert.False(t, id.IsNil(entry.ID))
	assert.False(t, entry.CreatedAt.IsZero())
	assert.JSONEq(t, `{"request_id":"r-1","trace_id":"t-1"}`, string(entry.Metadata))
}

func TestAuditService_PrepareKeepsExplicitActor(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-9"})
	entry := AuditEntry{UserID: "system"}
	svc.prepare(ctx, &entry)

	assert.Equal(t, "system", entry.UserID)
	assert.Nil(t, entry.Metadata)
}

func TestAuditColumns(t *testing.T) {
	assert.Equal(t, []string{
		"id", "entity_type", "entity_id", "action", "user_id", "user_email",
		"changes", "changes_compressed", "compression_algo", "metadata", "created_at",
	}, auditColumns)
}
