package blobclient

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/utils"
	"github.com/sony/gobreaker/v2"
)

// ResilienceConfig configures NewResilientBackend.
type ResilienceConfig struct {
	Retry utils.RetryConfig

	// FailureThreshold is the number of consecutive backend failures that opens
	// the breaker. Zero disables the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Enabled reports whether the config adds any behavior over the plain backend.
func (c ResilienceConfig) Enabled() bool {
	return c.Retry.MaxAttempts > 1 || c.FailureThreshold > 0
}

// ResilientBackend retries transient backend failures with exponential
// backoff and sheds load through a circuit breaker. NotFound and AlreadyExists
// are answers, not failures: they are never retried and never trip the breaker.
type ResilientBackend struct {
	next    Backend
	retry   utils.RetryConfig
	breaker *gobreaker.CircuitBreaker[any]
}

// NewResilientBackend wraps next with the configured policy.
func NewResilientBackend(next Backend, cfg ResilienceConfig, logger logging.Logger) *ResilientBackend {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := &ResilientBackend{next: next, retry: cfg.Retry}
	r.retry.RetryIf = retryable

	if cfg.FailureThreshold > 0 {
		timeout := cfg.OpenTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		threshold := cfg.FailureThreshold
		r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "blob-backend",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isAnswer(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					logging.NewField("breaker", name),
					logging.NewField("from", from.String()),
					logging.NewField("to", to.String()),
				)
			},
		})
	}
	return r
}

var _ Backend = (*ResilientBackend)(nil)

// BreakerState reports the breaker state; StateClosed when no breaker is configured.
func (r *ResilientBackend) BreakerState() gobreaker.State {
	if r.breaker == nil {
		return gobreaker.StateClosed
	}
	return r.breaker.State()
}

func isAnswer(err error) bool {
	return errors.IsNotFound(err) || errors.IsAlreadyExists(err)
}

func retryable(err error) bool {
	if isAnswer(err) {
		return false
	}
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}

func call[T any](ctx context.Context, r *ResilientBackend, fn func() (T, error)) (T, error) {
	return utils.RetryWithResult(ctx, r.retry, func() (T, error) {
		if r.breaker == nil {
			return fn()
		}
		v, err := r.breaker.Execute(func() (any, error) {
			return fn()
		})
		if err != nil {
			var zero T
			return zero, err
		}
		result, _ := v.(T)
		return result, nil
	})
}

func do(ctx context.Context, r *ResilientBackend, fn func() error) error {
	_, err := call(ctx, r, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (r *ResilientBackend) CreateContainer(ctx context.Context, name string) error {
	return do(ctx, r, func() error { return r.next.CreateContainer(ctx, name) })
}

func (r *ResilientBackend) DeleteContainer(ctx context.Context, name string) error {
	return do(ctx, r, func() error { return r.next.DeleteContainer(ctx, name) })
}

func (r *ResilientBackend) ListContainers(ctx context.Context) ([]string, error) {
	return call(ctx, r, func() ([]string, error) { return r.next.ListContainers(ctx) })
}

func (r *ResilientBackend) ContainerStatus(ctx context.Context, name string) (Presence, error) {
	return call(ctx, r, func() (Presence, error) { return r.next.ContainerStatus(ctx, name) })
}

func (r *ResilientBackend) ListBlobs(ctx context.Context, container, prefix string) ([]BlobInfo, error) {
	return call(ctx, r, func() ([]BlobInfo, error) { return r.next.ListBlobs(ctx, container, prefix) })
}

func (r *ResilientBackend) BlobStatus(ctx context.Context, container, blobName string) (Presence, error) {
	return call(ctx, r, func() (Presence, error) { return r.next.BlobStatus(ctx, container, blobName) })
}

func (r *ResilientBackend) UploadBlob(ctx context.Context, container, blobName string, data []byte) error {
	return do(ctx, r, func() error { return r.next.UploadBlob(ctx, container, blobName, data) })
}

func (r *ResilientBackend) DownloadBlob(ctx context.Context, container, blobName string) ([]byte, error) {
	return call(ctx, r, func() ([]byte, error) { return r.next.DownloadBlob(ctx, container, blobName) })
}

func (r *ResilientBackend) DeleteBlob(ctx context.Context, container, blobName string) error {
	return do(ctx, r, func() error { return r.next.DeleteBlob(ctx, container, blobName) })
}
