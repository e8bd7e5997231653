package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show Marathon configuration attributes and their sources",
	Long: `Show Marathon configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources. For example, the environment variables and config
file. These may not reflect the current values used by the running Marathon
server. The secret key is never printed.

Config file location: /etc/marathon/marathon.yml (or MARATHON_CONFIG_PATH)

Example:
  marathonctl configuration show
  marathonctl configuration show --format json`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")

		if err := showConfiguration(cmd.OutOrStdout(), format); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

// configurationValidateCmd represents the configuration validate command
var configurationValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the Marathon configuration",
	Long: `Load the configuration file and environment and report whether the
result is valid. A running server picks up file changes on restart.

Example:
  marathonctl configuration validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if path := cfg.ConfigFilePath(); path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", path)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationCmd.AddCommand(configurationValidateCmd)
	configurationShowCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
}

func showConfiguration(w io.Writer, format string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch format {
	case "json":
		out, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "text":
		fmt.Fprint(w, cfg.FormatText())
	default:
		return fmt.Errorf("unknown format %q (valid: text, json)", format)
	}
	return nil
}
