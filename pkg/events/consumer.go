package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/alphaflow/blobkit/pkg/logging"
)

// Handler processes a single event.
type Handler func(ctx context.Context, event Event) error

// receiver is the subset of *azservicebus.Receiver the consumer drives.
type receiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
	AbandonMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.AbandonMessageOptions) error
	DeadLetterMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.DeadLetterOptions) error
	Close(ctx context.Context) error
}

// ConsumerConfig configures an event consumer.
type ConsumerConfig struct {
	Queue          string
	MaxConcurrent  int
	MaxMessages    int
	ReceiveTimeout time.Duration
	Logger         logging.Logger
}

// Consumer receives storage events from a Service Bus queue.
type Consumer struct {
	config   ConsumerConfig
	receiver receiver
	handler  Handler
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	logger   logging.Logger
}

// NewConsumer creates a consumer for the configured queue.
func NewConsumer(connectionString string, config ConsumerConfig, handler Handler) (*Consumer, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	r, err := client.NewReceiverForQueue(config.Queue, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create receiver: %w", err)
	}

	return newConsumer(r, config, handler), nil
}

func newConsumer(r receiver, config ConsumerConfig, handler Handler) *Consumer {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 10
	}
	if config.ReceiveTimeout == 0 {
		config.ReceiveTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	return &Consumer{
		config:   config,
		receiver: r,
		handler:  handler,
		stopChan: make(chan struct{}),
		logger:   config.Logger,
	}
}

// Start starts the consumer workers.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("Starting event consumer",
		logging.NewField("queue", c.config.Queue),
		logging.NewField("concurrency", c.config.MaxConcurrent),
	)

	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
}

func (c *Consumer) worker(ctx context.Context, workerID int) {
	defer c.wg.Done()

	logger := c.logger.With(logging.NewField("worker", workerID))
	logger.Debug("Worker started")

	for {
		select {
		case <-c.stopChan:
			logger.Debug("Worker stopping")
			return
		case <-ctx.Done():
			logger.Debug("Worker stopping (context cancelled)")
			return
		default:
		}

		receiveCtx, cancel := context.WithTimeout(ctx, c.config.ReceiveTimeout)
		messages, err := c.receiver.ReceiveMessages(receiveCtx, c.config.MaxMessages, nil)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("Failed to receive messages", logging.NewField("error", err))
			c.backoff(ctx)
			continue
		}

		for _, msg := range messages {
			c.process(ctx, logger, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, logger logging.Logger, msg *azservicebus.ReceivedMessage) {
	logger = logger.With(logging.NewField("messageID", msg.MessageID))

	event, err := Decode(msg.Body)
	if err != nil {
		logger.Warn("Dead-lettering undecodable message", logging.NewField("error", err))
		if dlErr := c.receiver.DeadLetterMessage(ctx, msg, nil); dlErr != nil {
			logger.Error("Failed to dead-letter message", logging.NewField("error", dlErr))
		}
		return
	}

	if err := c.handler(ctx, event); err != nil {
		logger.Error("Event handler failed", logging.NewField("error", err))
		// Abandon so the message is redelivered
		if abandonErr := c.receiver.AbandonMessage(ctx, msg, nil); abandonErr != nil {
			logger.Error("Failed to abandon message", logging.NewField("error", abandonErr))
		}
		return
	}

	if err := c.receiver.CompleteMessage(ctx, msg, nil); err != nil {
		logger.Error("Failed to complete message", logging.NewField("error", err))
		return
	}
	logger.Debug("Event processed", logging.NewField("event_type", string(event.Type)))
}

func (c *Consumer) backoff(ctx context.Context) {
	select {
	case <-time.After(time.Second):
	case <-c.stopChan:
	case <-ctx.Done():
	}
}

// Stop stops the workers and closes the receiver.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping event consumer")

	c.stopOnce.Do(func() { close(c.stopChan) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Debug("All workers stopped")
	case <-ctx.Done():
		c.logger.Warn("Timeout waiting for workers to stop")
	}

	return c.receiver.Close(ctx)
}
