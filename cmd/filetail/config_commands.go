package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/filetail/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	c := &configCommand{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		PersistentPreRun: func(*cobra.Command, []string) {
			c.configPath = opts.configPath
		},
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runShow(cmd.OutOrStdout(), format)
		},
	}
	show.Flags().StringVar(&format, "format", "yaml", "output format (yaml, json)")

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runPath(cmd.OutOrStdout())
		},
	}

	var force bool
	var output string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runReset(cmd.InOrStdin(), cmd.OutOrStdout(), output, force)
		},
	}
	reset.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	reset.Flags().StringVar(&output, "output", "", "output path for config file (default: ~/.config/filetail/config.yaml)")

	cmd.AddCommand(show, path, reset)
	return cmd
}

// runShow displays the current configuration.
func (c *configCommand) runShow(out io.Writer, format string) error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return c.showJSON(out, cfg)
	case "yaml":
		return c.showYAML(out, cfg)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(out io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(out, "# Current Configuration")
	fmt.Fprintln(out, "# Source:", c.configSource())
	fmt.Fprintln(out)
	_, err = out.Write(data)
	return err
}

// showJSON displays configuration in JSON format.
func (c *configCommand) showJSON(out io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))
	return err
}

// runPath shows the configuration file search paths.
func (c *configCommand) runPath(out io.Writer) error {
	fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
	fmt.Fprintln(out)

	for i, p := range config.SearchPaths() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Fprintln(out)
	_, err := fmt.Fprintln(out, "Active configuration:", c.configSource())
	return err
}

// runReset writes the default configuration to output.
func (c *configCommand) runReset(in io.Reader, out io.Writer, output string, force bool) error {
	if output == "" {
		output = config.DefaultConfigPath()
	}

	if _, err := os.Stat(output); err == nil && !force {
		fmt.Fprintf(out, "Configuration file already exists at: %s\n", output)
		fmt.Fprint(out, "Overwrite? [y/N]: ")

		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && response == "" {
			fmt.Fprintln(out, "\nReset cancelled.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))

		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Reset cancelled.")
			return nil
		}
	}

	if err := config.Save(config.Default(), output); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "Configuration reset to defaults at: %s\n", output)
	return err
}

// configSource returns the path of the active configuration file.
func (c *configCommand) configSource() string {
	if p := config.NewLoader(c.configPath).Path(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "defaults (no config file found)"
}
