//go:build integration

// Package pgtest starts a migrated PostgreSQL container for integration tests.
package pgtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"cashdesk/internal/infrastructure/migration"
	"cashdesk/internal/infrastructure/storage/postgres"
	"cashdesk/pkg/logger"
)

var (
	once      sync.Once
	sharedDSN string
	startErr  error
)

// tables are emptied between tests; the schema is migrated once per package.
var tables = []string{
	"sys_counters",
	"doc_receipts",
	"doc_vouchers",
	"doc_attachments",
	"sys_audit",
	"sys_idempotency",
}

// New returns a pool on a shared, migrated container with all tables empty.
// The container lives until the test binary exits.
func New(t *testing.T) *postgres.Pool {
	t.Helper()
	ctx := context.Background()

	once.Do(func() {
		sharedDSN, startErr = start(ctx)
	})
	require.NoError(t, startErr, "start postgres container")

	cfg := postgres.DefaultPoolConfig(sharedDSN)
	cfg.MinConns = 0
	cfg.MaxConns = 50
	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, table := range tables {
		_, err := pool.Exec(ctx, "TRUNCATE "+table)
		require.NoError(t, err)
	}
	return pool
}

func start(ctx context.Context) (string, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("cashdesk_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", err
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		return "", err
	}
	defer pool.Close()

	m, err := migration.New(pool.Unwrap(), logger.Nop())
	if err != nil {
		return "", err
	}
	defer func() { _ = m.Close() }()

	return dsn, m.Up(ctx)
}
