package commands

import (
	"fmt"

	"github.com/benvon/taskboard/internal/reset"
	"github.com/spf13/cobra"
)

// NewWipeCmd creates the wipe command
func NewWipeCmd() *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete the stored board",
		Long:  fmt.Sprintf("Delete every stored task, the metrics and the theme. Requires --confirm %s.", reset.ConfirmationWord),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confirm != reset.ConfirmationWord {
				return fmt.Errorf("refusing to wipe: pass --confirm %s", reset.ConfirmationWord)
			}

			cfg, adapter, backend, err := openAdapter()
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close storage: %v\n", err)
				}
			}()

			if err := adapter.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wiped %s storage\n", cfg.StorageDriver)
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "Must be exactly "+reset.ConfirmationWord)
	return cmd
}
