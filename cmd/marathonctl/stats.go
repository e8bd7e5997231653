package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/db"
	gormstore "github.com/doodlesbykumbi/marathon-in-go/pkg/server/store/gorm"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Production statistics",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'stats' requires a subcommand (show)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show daily and per-product production counters",
	Long: `Show the production counters recorded in the database.

Example:
  marathonctl stats show
  marathonctl stats show --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Connect(db.Config{})
		if err != nil {
			return err
		}
		summary, err := gormstore.NewStatisticsStore(database).Summary()
		if err != nil {
			return fmt.Errorf("failed to load statistics: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		fmt.Fprintf(out, "Serials: %d  Batches: %d  Successful: %d  Failed: %d\n\n",
			summary.TotalSerials, summary.TotalBatches, summary.SuccessCount, summary.ErrorCount)

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DAY\tSERIALS\tBATCHES\tSUCCESS\tERRORS")
		for _, day := range sortedKeys(summary.Daily) {
			d := summary.Daily[day]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", day, d.Serials, d.Batches, d.Successes, d.Errors)
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PRODUCT\tSERIALS")
		for _, p := range sortedKeys(summary.Products) {
			fmt.Fprintf(tw, "%s\t%d\n", p, summary.Products[p])
		}
		return tw.Flush()
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsShowCmd)
	statsShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
