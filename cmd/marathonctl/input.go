package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/serial"
)

// addSerialFlags adds the --file flag used by commands taking serials.
func addSerialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "read serials from a file, one per line (- for stdin)")
}

// readSerials collects serials from args and the --file flag. Lines may be
// bare serials or label URLs carrying an s= parameter.
func readSerials(cmd *cobra.Command, args []string) ([]string, error) {
	raw := strings.Join(args, "\n")

	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		var r io.Reader = cmd.InOrStdin()
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open serial list: %w", err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read serial list: %w", err)
		}
		raw += "\n" + string(data)
	}

	serials := serial.Clean(raw)
	if len(serials) == 0 {
		return nil, serial.ErrNoSerials
	}
	return serials, nil
}
