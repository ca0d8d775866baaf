package events

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/alphaflow/blobkit/pkg/logging"
)

// Publisher delivers storage events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

var _ Publisher = (*ServiceBusPublisher)(nil)

// ServiceBusPublisher implements Publisher using an Azure Service Bus queue.
type ServiceBusPublisher struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
	queue  string
	logger logging.Logger
}

// NewServiceBusPublisher creates a publisher for queue from a namespace connection string.
func NewServiceBusPublisher(connectionString, queue string, logger logging.Logger) (*ServiceBusPublisher, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(queue, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &ServiceBusPublisher{
		client: client,
		sender: sender,
		queue:  queue,
		logger: logger,
	}, nil
}

// Publish sends one event as a JSON message.
func (p *ServiceBusPublisher) Publish(ctx context.Context, event Event) error {
	logger := p.logger.With(
		logging.NewField("operation", "servicebus.send"),
		logging.NewField("queue", p.queue),
		logging.NewField("event_type", string(event.Type)),
	)

	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.Error("Failed to send message", logging.NewField("error", err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	logger.Debug("Event published", logging.NewField("messageID", event.ID))
	return nil
}

// Close releases the sender and the client connection.
func (p *ServiceBusPublisher) Close(ctx context.Context) error {
	if err := p.sender.Close(ctx); err != nil {
		return err
	}
	return p.client.Close(ctx)
}

func toMessage(event Event) (*azservicebus.Message, error) {
	body, err := Encode(event)
	if err != nil {
		return nil, err
	}

	contentType := ContentType
	messageID := event.ID

	return &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		MessageID:   &messageID,
		ApplicationProperties: map[string]interface{}{
			PropertyEventType: string(event.Type),
		},
	}, nil
}
