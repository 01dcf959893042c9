// Package main provides the filetail CLI application.
//
// filetail follows a single file the way tail -f does, surviving truncation
// and delete+recreate. Events can be journaled to a local database and
// exported as Prometheus metrics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmhha/filetail/pkg/config"
	"github.com/0xmhha/filetail/pkg/logger"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds flags shared by all commands.
type rootOptions struct {
	configPath string
}

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "filetail",
		Short: "Follow a file like tail -f",
		Long: `filetail follows a single file, printing appended data as it arrives.

Truncation and delete+recreate are detected and reported; the stream
resumes from the start of the new content. Events can be recorded to a
journal (--journal) and exported at /metrics (--metrics-addr).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")

	cmd.AddCommand(
		newFollowCommand(opts),
		newStatsCommand(opts),
		newResetCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

// newVersionCommand prints the build version.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "filetail %s\n", version)
			return err
		},
	}
}

// loadConfig loads configuration from configPath, or from the search
// paths when it is empty.
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger creates the application logger from configuration.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}
