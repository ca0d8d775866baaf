package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Custom event types recorded in New Relic.
const (
	EventBlobStorageOperation = "BlobStorageOperation"
	EventSlowRequest          = "SlowRequest"
	EventServiceError         = "ServiceError"
)

// NewRelicClient wraps the New Relic agent.
type NewRelicClient struct {
	app         *newrelic.Application
	logger      logging.Logger
	serviceName string
	enabled     bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	LicenseKey  string
	AppName     string
	ServiceName string // e.g. "blobctl", "blob_api"
}

// NewNewRelicClient creates a New Relic client. Without a license key the
// client is disabled and every Record call is a no-op.
func NewNewRelicClient(cfg NewRelicConfig, logger logging.Logger) (*NewRelicClient, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if cfg.LicenseKey == "" {
		logger.Debug("New Relic disabled, license key not provided")
		return &NewRelicClient{
			enabled:     false,
			logger:      logger,
			serviceName: cfg.ServiceName,
		}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	logger.Info("New Relic client initialized",
		logging.NewField("app_name", cfg.AppName),
		logging.NewField("service", cfg.ServiceName),
	)

	return &NewRelicClient{
		app:         app,
		logger:      logger,
		serviceName: cfg.ServiceName,
		enabled:     true,
	}, nil
}

// Enabled reports whether events are sent to New Relic.
func (n *NewRelicClient) Enabled() bool {
	return n.enabled && n.app != nil
}

// RecordTransaction annotates the request's transaction, or starts a short one.
func (n *NewRelicClient) RecordTransaction(ctx context.Context, name string, durationMs int64, statusCode int, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	txn := newrelic.FromContext(ctx)
	if txn == nil {
		txn = n.app.StartTransaction(name)
		defer txn.End()
	}

	txn.AddAttribute("trace_id", traceID)
	txn.AddAttribute("request_id", requestID)
	txn.AddAttribute("status_code", statusCode)
	txn.AddAttribute("duration_ms", durationMs)
	txn.AddAttribute("service", n.serviceName)

	if statusCode >= 500 {
		txn.NoticeError(fmt.Errorf("HTTP %d", statusCode))
	}
}

// RecordCustomEvent records a custom event in New Relic.
func (n *NewRelicClient) RecordCustomEvent(eventType string, attributes map[string]interface{}) {
	if !n.Enabled() {
		return
	}

	n.app.RecordCustomEvent(eventType, attributes)
}

// RecordOperation records one storage client call.
func (n *NewRelicClient) RecordOperation(operation, container, blob string, duration time.Duration, err error) {
	if !n.Enabled() {
		return
	}
	n.RecordCustomEvent(EventBlobStorageOperation, operationAttributes(n.serviceName, operation, container, blob, duration, err))
}

func operationAttributes(service, operation, container, blob string, duration time.Duration, err error) map[string]interface{} {
	attrs := map[string]interface{}{
		"service":     service,
		"operation":   operation,
		"container":   container,
		"duration_ms": duration.Milliseconds(),
		"outcome":     Outcome(err),
	}
	if blob != "" {
		attrs["blob"] = blob
	}
	if err != nil {
		attrs["error"] = err.Error()
	}
	return attrs
}

// Outcome classifies an operation result for dashboards.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.IsAlreadyExists(err):
		return "already_exists"
	default:
		return "error"
	}
}

// RecordSlowRequest records a slow request event.
// Implements middleware.TelemetryClient interface.
func (n *NewRelicClient) RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	n.RecordCustomEvent(EventSlowRequest, map[string]interface{}{
		"service":     n.serviceName,
		"path":        path,
		"duration_ms": durationMs,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.RecordTransaction(ctx, path, durationMs, 200, traceID, requestID)
}

// RecordError records an error event.
// Implements middleware.TelemetryClient interface.
func (n *NewRelicClient) RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	n.RecordCustomEvent(EventServiceError, map[string]interface{}{
		"service":     n.serviceName,
		"path":        path,
		"error":       errorMsg,
		"status_code": statusCode,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.RecordTransaction(ctx, path, 0, statusCode, traceID, requestID)
}

// Shutdown flushes pending data to New Relic.
func (n *NewRelicClient) Shutdown(timeout time.Duration) {
	if n.Enabled() {
		n.app.Shutdown(timeout)
	}
}
