package api

import (
	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/gin-gonic/gin"
)

// Prefix is the base path of the versioned API.
const Prefix = "/api/v1"

func apiGroup(router *gin.Engine, tokens *auth.TokenService, logger logging.Logger) *gin.RouterGroup {
	if tokens == nil {
		return router.Group(Prefix)
	}
	return router.Group(Prefix, auth.Middleware(tokens, logger))
}

// scopes returns the read and write guards, or pass-throughs when auth is off.
func scopes(tokens *auth.TokenService, logger logging.Logger) (read, write gin.HandlerFunc) {
	if tokens == nil {
		pass := func(c *gin.Context) { c.Next() }
		return pass, pass
	}
	return auth.RequireScope(auth.ScopeRead, logger), auth.RequireScope(auth.ScopeWrite, logger)
}
