package httpservice

import (
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerFunc is a handler that reports failure by returning an error.
type HandlerFunc func(c *gin.Context) error

// Wrap adapts fn to gin, logging entry, exit and latency with the contextual
// logger. A returned error is handed to the error middleware.
func Wrap(handlerName string, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c).With(logging.NewField("handler", handlerName))
		start := time.Now()

		logger.Debug("Handler started",
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
		)

		if err := fn(c); err != nil {
			logger.Debug("Handler failed",
				logging.NewField("latency_ms", time.Since(start).Milliseconds()),
				logging.NewField("error", err),
			)
			HandleError(c, err)
			return
		}

		logger.Debug("Handler completed", logging.NewField("latency_ms", time.Since(start).Milliseconds()))
	}
}

// HandleError attaches err to the context and aborts the chain.
func HandleError(c *gin.Context, err error) {
	middleware.SetError(c, err)
}

// GetLogger retrieves the contextual logger from the request.
func GetLogger(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context())
}
