package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/core/id"
	"cashdesk/internal/domain/audit"
)

var _ audit.Recorder = (*AuditService)(nil)

// CompressionAlgo names how AuditEntry.ChangesCompressed is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const (
	auditTable = "sys_audit"

	// Change sets above this size are stored zstd-compressed.
	defaultCompressThreshold = 10 * 1024
)

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	UserID            string          `db:"user_id"`
	UserEmail         string          `db:"user_email"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	Metadata          json.RawMessage `db:"metadata"`
	CreatedAt         time.Time       `db:"created_at"`
}

var auditColumns = Columns[AuditEntry]()

// AuditService records document actions in sys_audit.
// Writes join the caller's transaction, so an entry exists only if the
// audited change committed.
type AuditService struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	compressThreshold int
}

// NewAuditService creates an audit service writing through txManager.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Log inserts entry. Actor, request metadata, ID and timestamp are filled
// from ctx when the caller left them empty.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	s.prepare(ctx, &entry)

	values := Values(&entry, auditColumns...)
	values["changes"] = nullJSON(entry.Changes)
	values["metadata"] = nullJSON(entry.Metadata)

	query, args, err := s.builder.Insert(auditTable).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditService) prepare(ctx context.Context, entry *AuditEntry) {
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.UserEmail == "" {
			entry.UserEmail = user.Email
		}
	}
	if len(entry.Metadata) == 0 {
		entry.Metadata = requestMetadata(ctx)
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.compress(entry)
}

// requestMetadata links an entry to the request that produced it.
func requestMetadata(ctx context.Context) json.RawMessage {
	tc := appctx.GetTrace(ctx)
	if tc == nil {
		return nil
	}
	raw, err := json.Marshal(map[string]string{
		"request_id": tc.RequestID,
		"trace_id":   tc.TraceID,
	})
	if err != nil {
		return nil
	}
	return raw
}

// LogChange records action on an entity with changes as the JSON payload.
func (s *AuditService) LogChange(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	action audit.Action,
	changes map[string]any,
) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changesJSON,
	})
}

func (s *AuditService) compress(entry *AuditEntry) {
	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) <= s.compressThreshold {
		return
	}
	entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
	entry.Changes = nil
	entry.CompressionAlgo = CompressionZstd
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
