package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alphaflow/blobkit/pkg/events"
	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect blob lifecycle events",
	}

	var concurrency int
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print storage events from the Service Bus queue until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ServiceBusConnectionString == "" {
				return fmt.Errorf("AZURE_SERVICEBUS_CONNECTION_STRING is not configured")
			}

			consumer, err := events.NewConsumer(a.cfg.ServiceBusConnectionString, events.ConsumerConfig{
				Queue:         a.cfg.EventsQueue,
				MaxConcurrent: concurrency,
				Logger:        a.logger,
			}, printEvent(a))
			if err != nil {
				return err
			}

			a.printer.Infof("Watching queue '%s'. Press Ctrl+C to stop.", a.cfg.EventsQueue)
			consumer.Start(cmd.Context())
			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return consumer.Stop(ctx)
		},
	}
	watch.Flags().IntVar(&concurrency, "concurrency", 1, "number of receive workers")

	cmd.AddCommand(watch)
	return cmd
}

func printEvent(a *app) events.Handler {
	return func(_ context.Context, e events.Event) error {
		target := e.Container
		if e.Blob != "" {
			target += "/" + e.Blob
		}
		line := fmt.Sprintf("%s  %-17s %s", e.OccurredAt.Local().Format(time.DateTime), e.Type, target)
		if e.Type == events.BlobUploaded {
			line += fmt.Sprintf(" (%d bytes)", e.Size)
		}
		a.printer.Itemf("%s", line)
		return nil
	}
}
