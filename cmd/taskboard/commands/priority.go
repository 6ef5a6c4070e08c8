package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/benvon/taskboard/internal/priority"
	"github.com/spf13/cobra"
)

// NewPriorityCmd creates the priority command
func NewPriorityCmd() *cobra.Command {
	var keywordsFile string

	cmd := &cobra.Command{
		Use:   "priority TITLE...",
		Short: "Show the priority the keyword heuristic gives each title",
		Long:  "Run the keyword heuristic on each argument. Keywords come from --keywords, else PRIORITY_KEYWORDS_FILE, else the built-in list.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keywordsFile == "" {
				keywordsFile = os.Getenv("PRIORITY_KEYWORDS_FILE")
			}
			keywords := priority.DefaultKeywords()
			if keywordsFile != "" {
				kw, err := priority.LoadKeywords(keywordsFile)
				if err != nil {
					return err
				}
				keywords = kw
			}

			h := priority.New(keywords)
			for _, title := range args {
				if strings.TrimSpace(title) == "" {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s  %s\n", h.Suggest(title), title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keywordsFile, "keywords", "", "YAML keyword file")
	return cmd
}
