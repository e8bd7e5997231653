package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/db"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/endpoints"
)

// shutdownGrace bounds how long a running batch may take to finish once a
// shutdown signal arrives.
const shutdownGrace = 2 * time.Minute

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Marathon application server",
	Long: `Run the Marathon application server.

History and statistics are kept in the database named by DATABASE_URL.
Without it the server still runs batches but does not record them.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind-address") {
			cfg.BindAddress, _ = cmd.Flags().GetString("bind-address")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var database *gorm.DB
		if db.URL() != "" {
			noMigrate, _ := cmd.Flags().GetBool("no-migrate")
			if !noMigrate {
				logger.Info("running database migrations")
				if err := runMigrations(); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}
			database, err = db.Connect(db.Config{Debug: cfg.Debug})
			if err != nil {
				return err
			}
		} else {
			logger.Warn("DATABASE_URL is not set; batch history and statistics are disabled")
		}

		s, err := server.NewServer(cfg, database, logger)
		if err != nil {
			return err
		}
		endpoints.RegisterAll(s)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go watchConfig(ctx)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("running server", zap.String("addr", "http://"+cfg.Addr()))
			errCh <- s.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	},
}

// watchConfig logs configuration file changes. Listener, browser and ERP
// settings take effect on restart.
func watchConfig(ctx context.Context) {
	if config.Get().ConfigFilePath() == "" {
		return
	}
	err := config.Watch(ctx, func(cfg *config.MarathonConfig) {
		if err := cfg.Validate(); err != nil {
			logger.Warn("reloaded configuration is invalid", zap.Error(err))
			return
		}
		logger.Info("configuration file changed; restart to apply",
			zap.String("path", cfg.ConfigFilePath()))
	}, func(err error) {
		logger.Warn("configuration watch", zap.Error(err))
	})
	if err != nil {
		logger.Debug("configuration watch stopped", zap.Error(err))
	}
}

func defaultPort() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 5000
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", "0.0.0.0", "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
