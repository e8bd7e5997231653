package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/db"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/report"
	gormstore "github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/gorm"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect finished batches",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'history' requires a subcommand (list, show)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Connect(db.Config{})
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		batches, err := gormstore.NewHistoryStore(database).ListBatches(limit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tPRODUCT\tMODE\tSERIALS\tRESULT")
		for _, b := range batches {
			result := "SUCCESS"
			if !b.Success {
				result = fmt.Sprintf("FAILED (%d)", b.Failed)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				b.ID, b.CreatedAt.Format(report.TimeFormat), b.Product, b.Mode, b.SerialCount, result)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Show one batch as a report",
	Long: `Show one batch with the outcome of every serial.

Example:
  marathonctl history show 6f1c... --format markdown
  marathonctl history show 6f1c... --format html > report.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Connect(db.Config{})
		if err != nil {
			return err
		}
		b, err := gormstore.NewHistoryStore(database).FetchBatch(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "markdown":
			_, err = fmt.Fprint(out, report.Markdown(b))
		case "html":
			var html []byte
			if html, err = report.HTML(b); err == nil {
				_, err = out.Write(html)
			}
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			err = enc.Encode(b)
		default:
			err = fmt.Errorf("unknown format %q (valid: markdown, html, json)", format)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().IntP("limit", "n", 20, "number of batches")
	historyShowCmd.Flags().StringP("format", "f", "markdown", "Output format (markdown, html or json)")
}
