package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/verify"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [serial...]",
	Short: "Check serials against the compliance dashboard",
	Long: `Check serials against the compliance dashboard.

The dashboard session cookie and CSRF token are taken from the flags or
from COMPLIANCE_SESSION_ID and COMPLIANCE_CSRF_TOKEN. Without them every
serial is reported as not verified.

Example:
  marathonctl verify --session abc --csrf def HEXP1 HEXP2
  marathonctl verify -f serials.txt --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		creds := verify.Credentials{
			SessionID: flagOrEnv(cmd, "session", "COMPLIANCE_SESSION_ID"),
			CSRFToken: flagOrEnv(cmd, "csrf", "COMPLIANCE_CSRF_TOKEN"),
		}
		report, err := verify.NewClientFromConfig(cfg, logger.Named("verify")).Verify(cmd.Context(), serials, creds)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		if output == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERIAL\tSTATUS")
		for _, r := range report.Results {
			fmt.Fprintf(tw, "%s\t%s\n", r.Serial, r.Status)
		}
		_ = tw.Flush()
		fmt.Fprintf(out, "\n%d passed, %d failed of %d\n", report.Summary.Passed, report.Summary.Failed, report.Summary.Total)
		if report.Summary.Failed > 0 {
			return fmt.Errorf("%d serial(s) did not pass", report.Summary.Failed)
		}
		return nil
	},
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addSerialFlags(verifyCmd)
	verifyCmd.Flags().String("session", "", "dashboard sessionid cookie")
	verifyCmd.Flags().String("csrf", "", "dashboard csrftoken cookie")
	verifyCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
