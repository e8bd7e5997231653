// Package report renders batch reports as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
)

// TimeFormat is the layout of timestamps in reports.
const TimeFormat = "2006-01-02 15:04:05 MST"

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders b as a Markdown document with one table row per serial.
func Markdown(b *model.Batch) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Batch %s\n\n", b.ID)
	fmt.Fprintf(&sb, "- **Product:** %s\n", cell(b.Product))
	fmt.Fprintf(&sb, "- **Mode:** %s\n", cell(b.Mode))
	fmt.Fprintf(&sb, "- **Started:** %s\n", b.CreatedAt.Format(TimeFormat))
	if !b.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Duration:** %s\n", b.FinishedAt.Sub(b.CreatedAt).Round(time.Second))
	}
	fmt.Fprintf(&sb, "- **Result:** %s (%d of %d succeeded)\n", outcome(b.Success), b.Succeeded, b.SerialCount)
	if b.Error != "" {
		fmt.Fprintf(&sb, "- **Error:** %s\n", cell(b.Error))
	}

	sb.WriteString("\n| # | Serial | Product | Result | Error |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for i, it := range b.Items {
		result := outcome(it.OK)
		if !it.OK && !it.Attempted {
			result = "NOT ATTEMPTED"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n", i+1, cell(it.Serial), cell(it.Product), result, cell(it.Error))
	}
	return sb.String()
}

// HTML renders the Markdown report of b as an HTML fragment.
func HTML(b *model.Batch) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(b)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func outcome(ok bool) string {
	if ok {
		return "SUCCESS"
	}
	return "FAILED"
}

// cell escapes a value for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
