package middleware

import (
	"context"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/utils"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	TraceIDKey      = "trace_id"
	TraceIDHeader   = "X-Trace-ID"
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// Tracing propagates the caller's trace ID or starts a new one.
func Tracing(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = utils.GenerateUUID()
			logger.Debug("Trace ID missing, generated new one", logging.NewField("trace_id", traceID))
		}
		stamp(c, TraceIDKey, TraceIDHeader, traceID)
		c.Next()
	}
}

// RequestID assigns every request a fresh ID. Incoming IDs are ignored so the
// value is always unique within this process's logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		stamp(c, RequestIDKey, RequestIDHeader, utils.GenerateRequestID())
		c.Next()
	}
}

func stamp(c *gin.Context, key, header, value string) {
	ctx := context.WithValue(c.Request.Context(), ctxKey(key), value)
	c.Request = c.Request.WithContext(ctx)
	c.Set(key, value)
	c.Header(header, value)
}

// ContextLogger attaches a logger carrying service, trace_id and request_id
// to the request context. Must run after Tracing and RequestID.
func ContextLogger(base logging.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := []logging.Field{logging.NewField("service", serviceName)}
		if id := GetTraceIDFromGin(c); id != "" {
			fields = append(fields, logging.NewField("trace_id", id))
		}
		if id := GetRequestIDFromGin(c); id != "" {
			fields = append(fields, logging.NewField("request_id", id))
		}

		ctx := logging.WithLogger(c.Request.Context(), base.With(fields...))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey(TraceIDKey)).(string)
	return id
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey(RequestIDKey)).(string)
	return id
}

func GetTraceIDFromGin(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

func GetRequestIDFromGin(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
