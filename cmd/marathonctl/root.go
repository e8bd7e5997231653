package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

// logger is built by the root command before any subcommand runs.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "marathonctl",
	Short: "Marathon production automation",
	Long: `marathonctl runs the Marathon server and its maintenance tasks.

Marathon drives the Odoo manufacturing UI to create, confirm and complete
production orders for batches of device serials, verifies serials against
the compliance dashboard and prints QR labels.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose || config.Get().Debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
