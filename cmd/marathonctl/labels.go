package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/label"
)

// labelsCmd represents the labels command
var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Render QR labels",
	Long:  `Render QR compliance labels as a printable PDF sheet or PNG images.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'labels' requires a subcommand (pdf, png)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var labelsPDFCmd = &cobra.Command{
	Use:   "pdf [serial...]",
	Short: "Write a sheet of labels as PDF",
	Long: `Write a US Letter sheet of 2.25" x 1.25" labels, 24 per page.

Example:
  marathonctl labels pdf -f serials.txt -o labels.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}
		gen, err := newLabelGenerator()
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = fmt.Sprintf("labels_%s.pdf", time.Now().Format("20060102_150405"))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := gen.PDF(f, serials); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d label(s) to %s\n", len(serials), path)
		return nil
	},
}

var labelsPNGCmd = &cobra.Command{
	Use:   "png [serial...]",
	Short: "Write one PNG label per serial",
	Long: `Write one 400x200 PNG label per serial into a directory.

Example:
  marathonctl labels png --dir ./labels HEXP1 HEXP2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := readSerials(cmd, args)
		if err != nil {
			return err
		}
		gen, err := newLabelGenerator()
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("dir")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for _, s := range serials {
			data, err := gen.PNG(s)
			if err != nil {
				return fmt.Errorf("label %s: %w", s, err)
			}
			path := filepath.Join(dir, s+".png")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d label(s) to %s\n", len(serials), dir)
		return nil
	},
}

func newLabelGenerator() (*label.Generator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return label.NewGenerator(cfg.LabelURL)
}

func init() {
	rootCmd.AddCommand(labelsCmd)
	labelsCmd.AddCommand(labelsPDFCmd)
	labelsCmd.AddCommand(labelsPNGCmd)

	addSerialFlags(labelsPDFCmd)
	labelsPDFCmd.Flags().StringP("output", "o", "", "PDF path (default labels_YYYYMMDD_HHMMSS.pdf)")
	addSerialFlags(labelsPNGCmd)
	labelsPNGCmd.Flags().String("dir", ".", "output directory")
}
