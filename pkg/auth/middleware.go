package auth

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the gin context key holding *Claims.
const ContextKeyClaims = "auth_claims"

func abort(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
}

// Middleware requires a valid bearer token on every request.
func Middleware(tokens *TokenService, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, errors.NewUnauthorizedError("Authorization header is required"))
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			logger.Warn("Invalid authorization header format",
				logging.NewField("header_length", len(authHeader)),
				logging.NewField("ip", c.ClientIP()),
			)
			abort(c, errors.NewUnauthorizedError("Invalid authorization header format. Expected: Bearer <token>"))
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" || strings.Count(tokenString, ".") != 2 {
			abort(c, errors.NewUnauthorizedError("Invalid token format"))
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				logging.NewField("error", err),
				logging.NewField("ip", c.ClientIP()),
				logging.NewField("path", c.Request.URL.Path),
				logging.NewField("method", c.Request.Method),
			)

			msg := "Invalid token"
			switch {
			case stderrors.Is(err, ErrExpiredToken):
				msg = "Token has expired"
			case stderrors.Is(err, ErrTokenTooLarge):
				abort(c, errors.NewAppError(errors.ErrorCodeBadRequest, "Token size exceeds maximum allowed", http.StatusRequestEntityTooLarge))
				return
			}
			abort(c, errors.NewUnauthorizedError(msg))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireScope rejects requests whose token lacks scope. Must run after Middleware.
func RequireScope(scope string, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abort(c, errors.NewUnauthorizedError("Authentication required"))
			return
		}

		if !claims.HasScope(scope) {
			logger.Warn("Access denied: missing scope",
				logging.NewField("subject", claims.Subject),
				logging.NewField("required_scope", scope),
				logging.NewField("path", c.Request.URL.Path),
			)
			abort(c, errors.NewForbiddenError("Insufficient permissions"))
			return
		}

		c.Next()
	}
}

// GetClaims extracts the validated claims from context.
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
