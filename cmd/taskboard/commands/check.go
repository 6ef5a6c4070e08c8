package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/auth"
	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/events"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/benvon/taskboard/internal/storage"
	"github.com/spf13/cobra"
)

const checkTimeout = 15 * time.Second

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Test connectivity to every configured dependency",
		Long:  "Ping storage, fetch the JWKS, send one categorisation request to the AI backend and connect to RabbitMQ, as configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			out := cmd.OutOrStdout()
			failed := 0
			report := func(name string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(out, "✗ %s: %v\n", name, err)
					return
				}
				fmt.Fprintf(out, "✓ %s\n", name)
			}

			report("storage ("+cfg.StorageDriver+")", checkStorage(ctx, cfg))

			if cfg.JWKSURL != "" {
				keys := auth.NewRemoteKeySet(cfg.JWKSURL, &http.Client{Timeout: checkTimeout}, clock.Real())
				set, err := keys.KeySet(ctx)
				if err == nil && set.Len() == 0 {
					err = fmt.Errorf("key set is empty")
				}
				report("JWKS "+cfg.JWKSURL, err)
			}

			if url := cfg.SuggestionURL(); url != "" {
				report("AI backend "+url, checkSuggestions(ctx, cfg, url, prompt, out))
			}

			if cfg.RabbitMQURL != "" {
				pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
				if err == nil {
					err = pub.HealthCheck(ctx)
					_ = pub.Close()
				}
				report("RabbitMQ", err)
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "Buy groceries", "Task title sent to the AI backend")
	return cmd
}

func checkStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.StorageDriver == storage.DriverMemory {
		return nil
	}
	backend, err := storage.Open(cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()
	return backend.Ping(ctx)
}

func checkSuggestions(ctx context.Context, cfg *config.Config, url, prompt string, out io.Writer) error {
	hc := suggest.NewHTTPClient(ctx, suggest.OAuthConfig{
		ClientID:     cfg.AIOAuthClientID,
		ClientSecret: cfg.AIOAuthClientSecret,
		TokenURL:     cfg.AIOAuthTokenURL,
		Scopes:       cfg.AIOAuthScopes,
	}, cfg.AITimeout)
	answer, err := suggest.NewClient(url, suggest.WithHTTPClient(hc)).Suggest(ctx, suggest.TypeCategorizeTask, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %q -> %q\n", prompt, answer)
	return nil
}
