// Package cli provides the docsim command-line interface for local batch runs.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsim/internal/config"
	"github.com/kirillkom/docsim/internal/observability/logging"
)

// Version is set at build time.
var Version = "0.1.0"

type rootOptions struct {
	verbose bool
	cfg     config.Config
}

// NewRootCommand builds the docsim command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docsim",
		Short: "Find similar documents by word-set Jaccard similarity",
		Long: `Docsim reduces every document to the set of distinct words it contains and
reports each pair whose Jaccard similarity is above the configured threshold.

Defaults come from CONFIG_FILE and the environment; flags override them.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg

			level := cfg.LogLevel
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), "docsim", level, "text"))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newExtractCommand(opts))
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
