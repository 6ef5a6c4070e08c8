package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/events"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print board events as they happen",
		Long:  "Subscribe to the RabbitMQ exchange the server publishes to and print each board change until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is not set")
			}

			pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer func() {
				if err := pub.Close(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close RabbitMQ connection: %v\n", err)
				}
			}()

			ctx := cmd.Context()
			evts, errs, err := pub.Subscribe(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Watching board events, press Ctrl+C to stop")
			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
				case e, ok := <-evts:
					if !ok {
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), formatEvent(e))
				}
			}
		},
	}
	return cmd
}

func formatEvent(e events.Event) string {
	line := fmt.Sprintf("%s  %-18s", e.At.Local().Format(time.DateTime), e.Type)
	if e.TaskID != "" {
		line += "  task=" + e.TaskID
	}
	return line
}
