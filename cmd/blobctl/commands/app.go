package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alphaflow/blobkit/pkg/blobclient"
	"github.com/alphaflow/blobkit/pkg/config"
	"github.com/alphaflow/blobkit/pkg/console"
	"github.com/alphaflow/blobkit/pkg/events"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/telemetry"
	"github.com/alphaflow/blobkit/pkg/utils"
)

// app carries what every command needs once flags and config are resolved.
type app struct {
	stdout, stderr io.Writer

	cfg      *config.Config
	logger   logging.Logger
	printer  *console.Printer
	reporter *cliReporter

	// newBackend builds the storage backend; tests replace it.
	newBackend func(cfg *config.Config, logger logging.Logger) (blobclient.Backend, error)
	nr         *telemetry.NewRelicClient

	closers []func(context.Context) error
}

// cliReporter remembers whether the client already printed a failure line.
type cliReporter struct {
	*console.Printer
	failed bool
}

func (r *cliReporter) Errorf(format string, args ...interface{}) {
	r.failed = true
	r.Printer.Errorf(format, args...)
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("Shutdown step failed", logging.NewField("error", err))
		}
	}
	a.closers = nil
	if a.logger != nil {
		logging.Sync(a.logger)
	}
}

// azureBackend builds the Azure backend from config.
func azureBackend(cfg *config.Config, logger logging.Logger) (blobclient.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StorageConnectionString != "" {
		return blobclient.NewAzureBackendFromConnectionString(cfg.StorageConnectionString, logger)
	}
	return blobclient.NewAzureBackend(cfg.StorageAccountName, cfg.StorageAccountKey, cfg.StorageUseManagedIdentity, logger)
}

func resilienceConfig(cfg *config.Config) blobclient.ResilienceConfig {
	return blobclient.ResilienceConfig{
		Retry: utils.RetryConfig{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: time.Duration(cfg.RetryInitialDelay) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.RetryMaxDelay) * time.Millisecond,
			Multiplier:   2.0,
		},
		FailureThreshold: uint32(max(cfg.BreakerFailureThreshold, 0)),
	}
}

// backend returns the configured backend wrapped with the resilience policy when enabled.
func (a *app) backend() (blobclient.Backend, error) {
	factory := a.newBackend
	if factory == nil {
		factory = azureBackend
	}
	backend, err := factory(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	if rc := resilienceConfig(a.cfg); rc.Enabled() {
		a.logger.Debug("Resilience policy enabled",
			logging.NewField("max_attempts", rc.Retry.MaxAttempts),
			logging.NewField("breaker_threshold", rc.FailureThreshold),
		)
		backend = blobclient.NewResilientBackend(backend, rc, a.logger)
	}
	return backend, nil
}

// clientOptions wires the optional event publisher and telemetry into a client.
func (a *app) clientOptions(reporter blobclient.Reporter) ([]blobclient.Option, error) {
	opts := []blobclient.Option{blobclient.WithLogger(a.logger)}
	if reporter != nil {
		opts = append(opts, blobclient.WithReporter(reporter))
	}

	if a.cfg.ServiceBusConnectionString != "" {
		publisher, err := events.NewServiceBusPublisher(a.cfg.ServiceBusConnectionString, a.cfg.EventsQueue, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(publisher.Close)
		opts = append(opts, blobclient.WithPublisher(publisher))
	}

	nr, err := a.newRelic()
	if err != nil {
		return nil, err
	}
	if nr.Enabled() {
		opts = append(opts, blobclient.WithRecorder(nr))
	}
	return opts, nil
}

// newRelic starts New Relic once per process.
func (a *app) newRelic() (*telemetry.NewRelicClient, error) {
	if a.nr != nil {
		return a.nr, nil
	}
	nr, err := telemetry.NewNewRelicClient(telemetry.NewRelicConfig{
		LicenseKey:  a.cfg.NewRelicLicenseKey,
		AppName:     a.cfg.AppName,
		ServiceName: a.cfg.AppName,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start New Relic: %w", err)
	}
	if nr.Enabled() {
		a.onClose(func(context.Context) error {
			nr.Shutdown(5 * time.Second)
			return nil
		})
	}
	a.nr = nr
	return nr, nil
}

// client builds a storage client that reports to the console.
func (a *app) client() (*blobclient.Client, error) {
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	opts, err := a.clientOptions(a.reporter)
	if err != nil {
		return nil, err
	}
	return blobclient.NewClient(backend, opts...), nil
}
