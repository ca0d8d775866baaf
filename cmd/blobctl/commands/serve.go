package commands

import (
	"time"

	"github.com/alphaflow/blobkit/pkg/api"
	"github.com/alphaflow/blobkit/pkg/auth"
	"github.com/alphaflow/blobkit/pkg/blobclient"
	"github.com/alphaflow/blobkit/pkg/httpservice"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/middleware"
	"github.com/alphaflow/blobkit/pkg/sentiment"
	"github.com/alphaflow/blobkit/pkg/telemetry"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storage and sentiment REST API",
		Long: `Serve the REST API under /api/v1.

Without storage credentials the server runs on an in-memory backend, which is
handy for local development. Setting AUTH_JWT_SECRET turns on bearer token auth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if port > 0 {
				cfg.HTTPPort = port
			}
			logger := a.logger.With(logging.NewField("service", cfg.AppName))

			backendName := "azure"
			var backend blobclient.Backend
			if cfg.HasStorageCredentials() || a.newBackend != nil {
				b, err := a.backend()
				if err != nil {
					return err
				}
				backend = b
			} else {
				logger.Warn("No storage credentials configured, using in-memory backend")
				backendName = "memory"
				backend = blobclient.NewMemoryBackend()
			}

			opts, err := a.clientOptions(nil)
			if err != nil {
				return err
			}
			client := blobclient.NewClient(backend, opts...)

			var tokens *auth.TokenService
			if cfg.AuthSecret != "" {
				if tokens, err = auth.NewTokenService(cfg.AuthSecret, logger); err != nil {
					return err
				}
			} else {
				logger.Warn("AUTH_JWT_SECRET not set, API is unauthenticated")
			}

			fetcher := sentiment.NewClient(
				sentiment.WithURL(cfg.SentimentURL),
				sentiment.WithLogger(logger),
			)

			serverCfg := httpservice.ServerConfig{
				Port:                   cfg.HTTPPort,
				ReadTimeout:            time.Duration(cfg.HTTPReadTimeout) * time.Second,
				WriteTimeout:           time.Duration(cfg.HTTPWriteTimeout) * time.Second,
				IdleTimeout:            time.Duration(cfg.HTTPIdleTimeout) * time.Second,
				ServiceName:            cfg.AppName,
				Logger:                 logger,
				RateLimitRPS:           cfg.RateLimitRPS,
				RateLimitBurst:         cfg.RateLimitBurst,
				SlowRequestThresholdMs: cfg.SlowRequestThresholdMs,
			}
			if serverCfg.Telemetry, err = a.telemetry(); err != nil {
				return err
			}
			slack := telemetry.NewSlackClient(telemetry.SlackConfig{
				WebhookURL:  cfg.SlackWebhookURL,
				ServiceName: cfg.AppName,
				Channel:     cfg.SlackChannel,
			}, logger)
			if slack.Enabled() {
				serverCfg.Alerts = slack
			}

			srv, err := httpservice.NewServer(serverCfg,
				api.NewHealthHandler(cfg.AppVersion, backendName, backend),
				api.NewStorageHandler(client, tokens, logger),
				api.NewSentimentHandler(fetcher, tokens, logger),
			)
			if err != nil {
				return err
			}

			logger.Info("blobctl API listening",
				logging.NewField("port", cfg.HTTPPort),
				logging.NewField("backend", backendName),
				logging.NewField("auth", tokens != nil),
			)
			return srv.Run(cmd.Context(), grace)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides HTTP_PORT)")
	cmd.Flags().DurationVar(&grace, "shutdown-timeout", 30*time.Second, "how long to drain requests on shutdown")
	return cmd
}

// telemetry returns the New Relic client as request telemetry, or nil when disabled.
func (a *app) telemetry() (middleware.TelemetryClient, error) {
	nr, err := a.newRelic()
	if err != nil {
		return nil, err
	}
	if !nr.Enabled() {
		return nil, nil
	}
	return nr, nil
}
