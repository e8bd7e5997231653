package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
)

func batch() *model.Batch {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return &model.Batch{
		ID:          "b-1",
		CreatedAt:   start,
		FinishedAt:  start.Add(95 * time.Second),
		Product:     "MLS-AB",
		Mode:        "batch",
		SerialCount: 3,
		Succeeded:   1,
		Failed:      2,
		Error:       "Step 6/10 (confirm): timed out",
		Items: []model.BatchItem{
			{Serial: "AB100", Product: "MLS-AB", OK: true, Attempted: true},
			{Serial: "AB101", Product: "MLS-AB", Attempted: true, Error: "a | b"},
			{Serial: "ZZ", Error: "product not detected"},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(batch())

	assert.True(t, strings.HasPrefix(md, "# Batch b-1\n"))
	assert.Contains(t, md, "- **Duration:** 1m35s\n")
	assert.Contains(t, md, "- **Result:** FAILED (1 of 3 succeeded)\n")
	assert.Contains(t, md, "| 1 | AB100 | MLS-AB | SUCCESS |  |\n")
	assert.Contains(t, md, `| 2 | AB101 | MLS-AB | FAILED | a \| b |`)
	assert.Contains(t, md, "| 3 | ZZ |  | NOT ATTEMPTED | product not detected |\n")
}

func TestHTMLRendersTable(t *testing.T) {
	html, err := HTML(batch())
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "<h1>Batch b-1</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>AB100</td>")
	assert.Contains(t, out, "<td>a | b</td>")
	assert.Contains(t, out, "<strong>Product:</strong>")
}
