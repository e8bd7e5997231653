package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/batch"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/browser"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/db"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/driver"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
	gormstore "github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [serial...]",
	Short: "Run a production batch without the server",
	Long: `Run a production batch from the command line.

The serials are grouped per detected product and submitted to Odoo the same
way the server does. When DATABASE_URL is set the batch is recorded in the
history. Interrupting the command cancels the batch; orders already created
in Odoo are kept.

The password is read from ODOO_PASSWORD when --password is not given.

Example:
  marathonctl run --email op@example.com HEXP1 HEXP2
  marathonctl run --email op@example.com --product HEX-P --mode per_item -f serials.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("ODOO_PASSWORD")
		}
		product, _ := cmd.Flags().GetString("product")
		modeName, _ := cmd.Flags().GetString("mode")
		maxOrder, _ := cmd.Flags().GetInt("max-order-size")
		if cmd.Flags().Changed("headed") {
			cfg.Headless = false
		}

		mode := driver.Mode(cfg.RunMode)
		if modeName != "" {
			if mode, err = driver.ParseMode(modeName); err != nil {
				return err
			}
		}

		var history store.HistoryStore
		var stats store.StatisticsStore
		if db.URL() != "" {
			database, err := db.Connect(db.Config{Debug: cfg.Debug})
			if err != nil {
				return err
			}
			history = gormstore.NewHistoryStore(database)
			stats = gormstore.NewStatisticsStore(database)
		}

		manager := browser.NewManager(browser.OptionsFromConfig(cfg), logger.Named("browser"))
		defer func() { _ = manager.Shutdown() }()

		hub := stream.NewHub(stream.DefaultBuffer)
		defer hub.Close()
		sub := hub.Subscribe()

		d := driver.New(manager, driver.OptionsFromConfig(cfg), logger.Named("driver"))
		runner := batch.NewRunner(d, history, stats, hub, batch.Options{
			HistoryLimit: cfg.HistoryLimit,
			MaxOrderSize: cfg.MaxOrderSize,
		}, logger.Named("batch"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job, err := runner.Start(ctx, batch.Request{Request: driver.Request{
			Product:      product,
			Serials:      serials,
			Credentials:  driver.Credentials{Email: email, Password: password},
			Mode:         mode,
			MaxOrderSize: maxOrder,
		}})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Batch %s: %d serial(s) of %s in %d order(s)\n", job.ID, job.Serials, job.Product, job.Orders)

	wait:
		for {
			select {
			case m := <-sub.C():
				printEvent(out, m)
			case <-ctx.Done():
				logger.Warn("cancelling batch", zap.String("batch_id", job.ID))
				job.Cancel()
				break wait
			case <-job.Done():
				break wait
			}
		}
		for len(sub.C()) > 0 {
			printEvent(out, <-sub.C())
		}

		res, err := job.Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Done: %d succeeded, %d failed in %s\n", res.Succeeded, res.Failed, res.Duration().Round(time.Second))
		if closeErr := runner.Close(context.Background()); closeErr != nil {
			logger.Warn("runner close", zap.Error(closeErr))
		}
		if !res.Success() {
			if res.Err != nil {
				return res.Err
			}
			return fmt.Errorf("%d serial(s) failed", res.Failed)
		}
		return nil
	},
}

// printEvent writes a hub message as one line.
func printEvent(w io.Writer, m stream.Message) {
	data, err := m.Encode()
	if err != nil {
		return
	}
	var decoded struct {
		Data struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Success *bool  `json:"success"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return
	}
	switch {
	case decoded.Data.Message != "":
		fmt.Fprintf(w, "[%s] %s\n", decoded.Data.Type, decoded.Data.Message)
	case decoded.Data.Success != nil:
		fmt.Fprintf(w, "[%s] success=%v\n", m.Event, *decoded.Data.Success)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSerialFlags(runCmd)
	runCmd.Flags().String("email", "", "Odoo login email")
	runCmd.Flags().String("password", "", "Odoo password (default $ODOO_PASSWORD)")
	runCmd.Flags().String("product", "", "product code (detected from the serials when empty)")
	runCmd.Flags().String("mode", "", "order mode: batch or per_item (default from configuration)")
	runCmd.Flags().Int("max-order-size", 0, "split orders larger than this (0 uses the configuration)")
	runCmd.Flags().Bool("headed", false, "show the browser window")
}
