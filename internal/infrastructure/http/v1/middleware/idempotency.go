package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/apperror"
	appctx "cashdesk/internal/core/context"
	"cashdesk/internal/infrastructure/storage/postgres"
	"cashdesk/pkg/logger"
)

const (
	HeaderIdempotencyKey     = "X-Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255

	// DefaultIdempotencyBodyBytes bounds the body buffered for fingerprinting
	// when no larger limit is configured.
	DefaultIdempotencyBodyBytes int64 = 1 << 20

	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore remembers the outcome of keyed requests.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	ReleaseKey(ctx context.Context, key string) error
}

// Idempotency makes keyed POSTs safe to retry. A repeated create with the
// same key and body replays the first response and allocates no new number.
// Requests without the header pass through untouched. maxBodyBytes bounds the
// body buffered for fingerprinting; attachment uploads need it at least as
// large as the upload limit. Values <= 0 select DefaultIdempotencyBodyBytes.
func Idempotency(store IdempotencyStore, maxBodyBytes int64) gin.HandlerFunc {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultIdempotencyBodyBytes
	}
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			abortWith(c, apperror.NewValidation("idempotency key too long").
				WithDetail("max_length", maxIdempotencyKeyLen))
			return
		}

		hash, err := fingerprintBody(c, maxBodyBytes)
		if err != nil {
			abortWith(c, err)
			return
		}

		ctx := c.Request.Context()
		operation := c.Request.Method + " " + c.FullPath()
		replay, err := store.AcquireKey(ctx, key, appctx.GetUserID(ctx), operation, hash)
		if err != nil {
			if !apperror.IsAppError(err) {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			abortWith(c, err)
			return
		}
		if replay != nil {
			logger.Debug(ctx, "idempotent replay", "key", key, "status", replay.StatusCode)
			c.Header(HeaderIdempotentReplayed, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)
		c.Next()
	}
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(c *gin.Context, limit int64) (string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		return "", apperror.NewValidation("could not read request body").WithCause(err)
	}
	if int64(len(body)) > limit {
		appErr := apperror.NewValidation("request body too large for idempotency").
			WithDetail("max_bytes", limit)
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		return "", appErr
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CompleteIdempotency stores a successful response for replay.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	ctx := finishContext(c)
	if err := store.CompleteKey(ctx, key, statusCode, contentType, response); err != nil {
		logger.Warn(ctx, "store idempotent response failed", "key", key, "error", err)
	}
}

// finishIdempotencyWithError records a final failure, or releases the key
// when the client is expected to retry.
func finishIdempotencyWithError(c *gin.Context, retryable bool, statusCode int, body any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	ctx := finishContext(c)
	var err error
	if retryable {
		err = store.ReleaseKey(ctx, key)
	} else {
		err = store.FailKey(ctx, key, statusCode, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "finish idempotency key failed", "key", key, "retryable", retryable, "error", err)
	}
}

// finishContext outlives a client disconnect. The handler's work has already
// committed or failed by now, and a key left pending would later be reclaimed
// and the create run a second time.
func finishContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func idempotencyFrom(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(ctxIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	store, ok := c.Value(ctxIdempotencyStore).(IdempotencyStore)
	return key, store, ok && store != nil
}
