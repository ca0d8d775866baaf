package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/utils"
	"golang.org/x/time/rate"
)

// alertAttempts bounds webhook retries for a single alert.
const alertAttempts = 3

// SlackClient posts alerts to a Slack incoming webhook.
type SlackClient struct {
	webhookURL  string
	serviceName string
	channel     string
	logger      logging.Logger
	enabled     bool
	client      *http.Client
	limiter     *rate.Limiter
}

// SlackConfig holds Slack configuration.
type SlackConfig struct {
	WebhookURL  string
	ServiceName string
	Channel     string
}

// SlackMessage represents a Slack webhook message.
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment.
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackClient creates a Slack client. Without a webhook URL it is disabled.
func NewSlackClient(cfg SlackConfig, logger logging.Logger) *SlackClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.WebhookURL == "" {
		return &SlackClient{enabled: false, logger: logger}
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "#alerts"
	}

	return &SlackClient{
		webhookURL:  cfg.WebhookURL,
		serviceName: cfg.ServiceName,
		channel:     channel,
		logger:      logger,
		enabled:     true,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Enabled reports whether a webhook is configured.
func (s *SlackClient) Enabled() bool {
	return s.enabled
}

// SendMessage posts a message, waiting for the one-per-second limiter.
func (s *SlackClient) SendMessage(ctx context.Context, msg SlackMessage) error {
	if !s.enabled {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limiter: %w", err)
	}

	if msg.Channel == "" {
		msg.Channel = s.channel
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// RetrySendMessage sends a message with retry logic.
func (s *SlackClient) RetrySendMessage(ctx context.Context, msg SlackMessage, maxAttempts int) error {
	if !s.enabled {
		return nil
	}

	config := utils.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}

	return utils.Retry(ctx, config, func() error {
		return s.SendMessage(ctx, msg)
	})
}

func (s *SlackClient) alert(color, title string, fields []SlackField) SlackMessage {
	return SlackMessage{
		Text: title,
		Attachments: []SlackAttachment{{
			Color:     color,
			Title:     title,
			Fields:    fields,
			Timestamp: time.Now().Unix(),
		}},
	}
}

// SendSlowRequestAlert implements middleware.AlertSender.
func (s *SlackClient) SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	return s.RetrySendMessage(ctx, s.alert("warning", fmt.Sprintf("Slow request in %s", s.serviceName), []SlackField{
		{Title: "Path", Value: path, Short: true},
		{Title: "Duration", Value: fmt.Sprintf("%d ms", durationMs), Short: true},
		{Title: "Trace ID", Value: traceID, Short: true},
		{Title: "Request ID", Value: requestID, Short: true},
	}), alertAttempts)
}

// SendErrorAlert implements middleware.AlertSender.
func (s *SlackClient) SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	return s.RetrySendMessage(ctx, s.alert("danger", fmt.Sprintf("Error in %s", s.serviceName), []SlackField{
		{Title: "Path", Value: path, Short: true},
		{Title: "Status Code", Value: fmt.Sprintf("%d", statusCode), Short: true},
		{Title: "Error", Value: errorMsg, Short: false},
		{Title: "Trace ID", Value: traceID, Short: true},
		{Title: "Request ID", Value: requestID, Short: true},
	}), alertAttempts)
}
