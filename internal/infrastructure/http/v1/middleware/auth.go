package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cashdesk/internal/core/apperror"
	appctx "cashdesk/internal/core/context"
)

// TokenValidator turns a bearer token into the acting user.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("authorization header must use the Bearer scheme")
)

// Auth rejects requests without a valid bearer token and stores the user on
// the request context. Audit entries take their actor from here.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		user, err := validator.ValidateToken(raw)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			abortUnauthorized(c, "token expired")
			return
		case err != nil || user == nil || user.UserID == "":
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", user.UserID))
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", user.UserID)

		c.Next()
	}
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errBadScheme
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errBadScheme
	}
	return token, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
