package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/taskboard/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the stored board",
		Long:  "Print the persisted tasks and metrics as JSON (default) or YAML. The output can be fed back to 'import'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, adapter, backend, err := openAdapter()
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close storage: %v\n", err)
				}
			}()

			snap, err := adapter.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer func() { _ = enc.Close() }()
				return enc.Encode(snap)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print YAML instead of JSON")
	return cmd
}

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the stored board with a snapshot file",
		Long:  "Replace the stored tasks with those in a JSON or YAML snapshot. Metrics are recomputed. Stop the server first: a running server overwrites storage on its next save.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			_, adapter, backend, err := openAdapter()
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close storage: %v\n", err)
				}
			}()

			snap.Metrics = models.ComputeMetrics(snap.Tasks, now())
			if err := adapter.Save(cmd.Context(), snap); err != nil {
				return fmt.Errorf("failed to save snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", len(snap.Tasks))
			return nil
		},
	}
	return cmd
}

func readSnapshot(path string) (models.Snapshot, error) {
	snap := models.EmptySnapshot()
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &snap)
	default:
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := models.NormalizeTasks(snap.Tasks); err != nil {
		return snap, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return snap, nil
}
