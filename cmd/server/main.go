// Package main is the entry point for the cashdesk API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashdesk/internal/domain/auth"
	"cashdesk/internal/domain/documents"
	"cashdesk/internal/domain/documents/receipt"
	"cashdesk/internal/domain/documents/voucher"
	"cashdesk/internal/infrastructure/config"
	v1 "cashdesk/internal/infrastructure/http/v1"
	"cashdesk/internal/infrastructure/mail"
	"cashdesk/internal/infrastructure/migration"
	"cashdesk/internal/infrastructure/numerator"
	"cashdesk/internal/infrastructure/objectstore"
	"cashdesk/internal/infrastructure/pdf"
	"cashdesk/internal/infrastructure/storage/postgres"
	"cashdesk/internal/infrastructure/storage/postgres/document_repo"
	"cashdesk/pkg/logger"
)

const maintenanceInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.App.IsDevelopment(),
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting cashdesk server", "version", cfg.App.Version, "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	poolCfg.ApplicationName = cfg.App.Name
	poolCfg.SlowQueryThreshold = cfg.Database.SlowQueryThreshold

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.Database.MigrateOnStart {
		if err := migrateUp(ctx, pool, log); err != nil {
			return err
		}
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.Database.StatementTimeout
	txm := postgres.NewTxManager(pool).WithDefaults(txOpts)

	// --- Allocator ---
	allocator := numerator.New(numerator.NewPostgresStore(txm, cfg.Database.LockTimeout))

	// --- Collaborators ---
	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		return err
	}

	objects, err := objectstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Warnw("object storage bucket check failed", "bucket", cfg.Storage.Bucket, "error", err)
	}

	renderer := pdf.NewChromeRenderer(pdf.ChromeConfig{
		RemoteURL: cfg.PDF.RemoteURL,
		Timeout:   cfg.PDF.Timeout,
		NoSandbox: os.Getuid() == 0,
	})
	defer renderer.Close()

	mailer := mail.NewSMTPMailer(cfg.Mail)

	// --- Document services ---
	depsFor := func(repo documents.Repository, kind documents.Kind) documents.Deps {
		return documents.Deps{
			Repo:        repo,
			Attachments: document_repo.NewAttachmentRepo(txm, kind.DocType),
			Allocator:   allocator,
			TxManager:   txm,
			Audit:       auditService,
			Objects:     objects,
			Renderer:    renderer,
			Mailer:      mailer,
		}
	}
	receipts := receipt.NewService(depsFor(document_repo.NewReceiptRepo(txm), receipt.Kind))
	vouchers := voucher.NewService(depsFor(document_repo.NewVoucherRepo(txm), voucher.Kind))

	// --- Auth ---
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		return err
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		DB:             pool,
		Storage:        objects,
		Version:        cfg.App.Version,
		Receipts:       receipts,
		Vouchers:       vouchers,
		Allocator:      allocator,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	}
	var idempotency *postgres.IdempotencyStore
	if cfg.HTTP.IdempotencyEnabled {
		idempotency = postgres.NewIdempotencyStore(txm, cfg.HTTP.IdempotencyTTL)
		routerCfg.Idempotency = idempotency
	}
	router := v1.NewRouter(routerCfg)

	go maintenance(ctx, pool, idempotency)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return logger.WithLogger(context.Background(), log) },
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func migrateUp(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	m, err := migration.New(pool.Unwrap(), log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}

// maintenance logs pool statistics and purges expired idempotency keys.
func maintenance(ctx context.Context, pool *postgres.Pool, idempotency *postgres.IdempotencyStore) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
			if idempotency == nil {
				continue
			}
			n, err := idempotency.CleanupExpired(ctx)
			if err != nil {
				logger.Warn(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "idempotency keys purged", "count", n)
			}
		}
	}
}
