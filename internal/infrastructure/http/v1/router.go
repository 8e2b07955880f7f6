// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/numerator"
	"cashdesk/internal/domain/documents/receipt"
	"cashdesk/internal/domain/documents/voucher"
	"cashdesk/internal/infrastructure/http/v1/handlers"
	"cashdesk/internal/infrastructure/http/v1/middleware"
	"cashdesk/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.TokenValidator

	// DB is pinged by the readiness probe
	DB handlers.Pinger

	// Storage is probed too, but an outage only degrades readiness
	Storage handlers.Pinger

	// Version is reported by /health/live
	Version string

	Receipts  *receipt.Service
	Vouchers  *voucher.Service
	Allocator numerator.Allocator

	// Idempotency replays keyed POST requests; nil disables it
	Idempotency middleware.IdempotencyStore

	// MaxUploadBytes bounds multipart memory; 0 keeps the gin default
	MaxUploadBytes int64
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if cfg.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version,
		handlers.HealthCheck{Name: "database", Pinger: cfg.DB, Critical: true},
		handlers.HealthCheck{Name: "storage", Pinger: cfg.Storage},
	)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency, idempotencyBodyLimit(cfg.MaxUploadBytes)))
		}

		registerDocumentRoutes(protected, cfg)
		registerSequenceRoutes(protected, cfg)
	}

	return router
}

// registerDocumentRoutes registers receipt and voucher endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	if cfg.Receipts != nil {
		RegisterDocumentRoutes(rg.Group("/receipts"), handlers.NewReceiptHandler(baseHandler, cfg.Receipts))
	}
	if cfg.Vouchers != nil {
		RegisterDocumentRoutes(rg.Group("/vouchers"), handlers.NewVoucherHandler(baseHandler, cfg.Vouchers))
	}
}

// registerSequenceRoutes registers read-only sequence endpoints.
func registerSequenceRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Allocator == nil {
		return
	}
	handler := handlers.NewSequenceHandler(handlers.NewBaseHandler(), cfg.Allocator)
	rg.GET("/sequences/:docType/:year", handler.Get)
}

// idempotencyBodyLimit leaves room for a full attachment upload plus its
// multipart framing.
func idempotencyBodyLimit(maxUpload int64) int64 {
	if maxUpload <= 0 {
		return middleware.DefaultIdempotencyBodyBytes
	}
	return maxUpload + middleware.DefaultIdempotencyBodyBytes
}
