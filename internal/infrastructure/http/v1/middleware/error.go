package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/apperror"
	"cashdesk/pkg/logger"
)

// retryAfterSeconds is advertised on retryable failures.
const retryAfterSeconds = "1"

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if c.Writer.Written() {
			return
		}

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			appErr = fromUntyped(c.Request.Context(), err)
		}

		if appErr.Err != nil || appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"error", err,
			)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
		if appErr.Code == apperror.CodeInternal {
			body["details"] = map[string]any{"request_id": c.GetString("request_id")}
		}
		if appErr.Retryable {
			body["retryable"] = true
			c.Header("Retry-After", retryAfterSeconds)
		}

		finishIdempotencyWithError(c, appErr.Retryable, appErr.HTTPStatus, body)

		c.JSON(appErr.HTTPStatus, body)
	}
}

// fromUntyped maps errors that never became AppError.
func fromUntyped(ctx context.Context, err error) *apperror.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &apperror.AppError{
			Code:       apperror.CodeStoreUnavailable,
			Message:    "Request timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Retryable:  true,
			Err:        err,
		}
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Client went away; the status is never seen.
		return &apperror.AppError{
			Code:       apperror.CodeInternal,
			Message:    "Request cancelled",
			HTTPStatus: 499,
			Retryable:  true,
			Err:        err,
		}
	}
	return apperror.NewInternal(err)
}
