package middleware

import (
	"net/http"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with SetError.
// Client errors are logged at warn, everything else at error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := errors.FromError(c.Errors.Last().Err)
		if appErr.HTTPStatus == 0 {
			appErr.HTTPStatus = errors.ToHTTPStatus(appErr.Code)
		}

		logger := logging.FromContext(c.Request.Context()).With(
			logging.NewField("path", c.Request.URL.Path),
			logging.NewField("status_code", appErr.HTTPStatus),
		)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("Request failed", logging.NewField("error", appErr.Error()))
		} else {
			logger.Warn("Request rejected", logging.NewField("error", appErr.Error()))
		}

		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, appErr.ToErrorResponse())
		}
	}
}

// SetError records err for ErrorHandler and stops the handler chain.
func SetError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
