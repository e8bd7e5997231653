package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
)

// serialsCmd represents the serials command
var serialsCmd = &cobra.Command{
	Use:   "serials",
	Short: "Inspect serial lists",
	Long:  `Validate serial lists and detect the products they belong to.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'serials' requires a subcommand (validate, detect)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var serialsValidateCmd = &cobra.Command{
	Use:   "validate [serial...]",
	Short: "Report valid, duplicate and invalid serials",
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}
		v := serial.Validate(serials)

		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		fmt.Fprintf(out, "Valid: %d\n", len(v.Valid))
		if len(v.Duplicates) > 0 {
			fmt.Fprintf(out, "Duplicates: %d\n", len(v.Duplicates))
			for _, d := range v.Duplicates {
				fmt.Fprintf(out, "  %s\n", d)
			}
		}
		if len(v.Invalid) > 0 {
			fmt.Fprintf(out, "Invalid: %d\n", len(v.Invalid))
			for _, inv := range v.Invalid {
				fmt.Fprintf(out, "  %s: %s\n", inv.Serial, inv.Reason)
			}
			return fmt.Errorf("%d invalid serial(s)", len(v.Invalid))
		}
		return nil
	},
}

var serialsDetectCmd = &cobra.Command{
	Use:   "detect [serial...]",
	Short: "Group serials by detected product",
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}
		product, _ := cmd.Flags().GetString("product")
		groups, undetected := serial.GroupByProduct(serial.Dedupe(serials), product)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PRODUCT\tSERIALS")
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%d\n", g.Product, len(g.Serials))
		}
		if len(undetected) > 0 {
			fmt.Fprintf(tw, "(undetected)\t%d\n", len(undetected))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(serialsCmd)
	serialsCmd.AddCommand(serialsValidateCmd)
	serialsCmd.AddCommand(serialsDetectCmd)

	addSerialFlags(serialsValidateCmd)
	serialsValidateCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	addSerialFlags(serialsDetectCmd)
	serialsDetectCmd.Flags().String("product", "", "product for serials no pattern matches")
}
