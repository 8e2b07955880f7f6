// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"cashdesk/internal/core/apperror"
	appctx "cashdesk/internal/core/context"
	"cashdesk/pkg/logger"
)

// Recovery turns a handler panic into a 500 with the problem body. The stack
// goes to the log only. http.ErrAbortHandler is re-raised so net/http can
// drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)))
			if c.Writer.Written() {
				c.Abort()
				return
			}
			// ErrorHandler has already unwound, so the body is written here.
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{"request_id": appctx.GetRequestID(ctx)},
			})
		}()
		c.Next()
	}
}
