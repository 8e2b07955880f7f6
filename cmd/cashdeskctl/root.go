package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cashdesk/internal/infrastructure/config"
	"cashdesk/internal/infrastructure/storage/postgres"
	"cashdesk/pkg/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "cashdeskctl",
	Short: "Operate a cashdesk deployment",
	Long: `cashdeskctl manages the cashdesk database schema, inspects document
number sequences and mints bearer tokens for local development.

Configuration is read the same way as the server: config.toml from the
config directory, then CASHDESK_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.toml")
}

// environment is the shared state commands build on demand.
type environment struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *postgres.Pool
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// connect loads config and opens a small pool. Callers must call close.
func connect(ctx context.Context) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		return nil, err
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0
	poolCfg.ApplicationName = "cashdeskctl"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &environment{cfg: cfg, log: log, pool: pool}, nil
}

func (e *environment) close() {
	e.pool.Close()
	_ = e.log.Sync()
}
