package middleware

import (
	"context"
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/gin-gonic/gin"
)

// TelemetryClient receives request-level telemetry.
type TelemetryClient interface {
	RecordTransaction(ctx context.Context, name string, durationMs int64, statusCode int, traceID, requestID string)
	RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string)
	RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string)
}

// AlertSender pushes human-facing alerts, e.g. to Slack.
type AlertSender interface {
	SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error
	SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error
}

// Observe records every request as a transaction and raises alerts for slow
// requests and 5xx responses. telemetry and alerts may be nil.
func Observe(slowThresholdMs int64, telemetry TelemetryClient, alerts AlertSender, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latencyMs := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		traceID := GetTraceIDFromGin(c)
		requestID := GetRequestIDFromGin(c)
		ctx := c.Request.Context()

		route := c.FullPath()
		if route == "" {
			route = path
		}
		if telemetry != nil {
			telemetry.RecordTransaction(ctx, c.Request.Method+" "+route, latencyMs, statusCode, traceID, requestID)
		}

		if slowThresholdMs > 0 && latencyMs > slowThresholdMs {
			logger.Warn("Slow request detected",
				logging.NewField("path", path),
				logging.NewField("duration_ms", latencyMs),
				logging.NewField("threshold_ms", slowThresholdMs),
			)
			if telemetry != nil {
				telemetry.RecordSlowRequest(ctx, path, latencyMs, traceID, requestID)
			}
			if alerts != nil {
				if err := alerts.SendSlowRequestAlert(ctx, path, latencyMs, traceID, requestID); err != nil {
					logger.Error("Failed to send slow request alert", logging.NewField("error", err))
				}
			}
		}

		if statusCode >= 500 {
			errorMsg := "Internal server error"
			if len(c.Errors) > 0 {
				errorMsg = c.Errors.String()
			}
			// ErrorHandler already logged it
			if telemetry != nil {
				telemetry.RecordError(ctx, path, errorMsg, statusCode, traceID, requestID)
			}
			if alerts != nil {
				if err := alerts.SendErrorAlert(ctx, path, errorMsg, statusCode, traceID, requestID); err != nil {
					logger.Error("Failed to send error alert", logging.NewField("error", err))
				}
			}
		}
	}
}
