package browser

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

func TestWithTextEscapes(t *testing.T) {
	assert.Equal(t, "/Confirm/i", WithText("button", "Confirm").Text)
	assert.Equal(t, `/Mark as Done \(1\)/i`, WithText("button", "Mark as Done (1)").Text)
	assert.Equal(t, `/a\/b/i`, WithText("span", "a/b").Text)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "input#login", CSS("input#login").String())
	assert.Equal(t, "button /Open/i", WithText("button", "Open").String())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.MarathonConfig{
		BrowserBin:          "/usr/bin/chromium",
		BrowserProfile:      "/tmp/profile",
		Headless:            true,
		NavigationTimeoutMs: 1500,
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "/usr/bin/chromium", opts.Bin)
	assert.Equal(t, "/tmp/profile", opts.ProfileDir)
	assert.True(t, opts.Headless)
	assert.Equal(t, 1500*time.Millisecond, opts.NavigationTimeout)
}

func TestLauncherFlags(t *testing.T) {
	l := Options{Headless: true, ProfileDir: "/tmp/p"}.launcher()
	assert.True(t, l.Has("no-sandbox"))
	assert.True(t, l.Has("disable-dev-shm-usage"))
	assert.Equal(t, "/tmp/p", l.Get("user-data-dir"))
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Options{}, nil)
	assert.Equal(t, 30*time.Second, m.opts.NavigationTimeout)
	assert.False(t, m.IsConnected())
	assert.NoError(t, m.Shutdown())
}

func TestStartHonoursCancelledContext(t *testing.T) {
	m := NewManager(Options{Headless: true}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Start(ctx), context.Canceled)
	assert.False(t, m.IsConnected())
}

func TestManagerIntegration(t *testing.T) {
	if os.Getenv("BROWSER_TEST") == "" {
		t.Skip("set BROWSER_TEST=1 to run against a local Chromium")
	}

	m := NewManager(Options{Headless: true, Bin: os.Getenv("BROWSER_BIN")}, zap.NewNop())
	t.Cleanup(func() { _ = m.Shutdown() })

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, err := m.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	html := "data:text/html,<input id=login><button>Confirm</button>"
	require.NoError(t, page.Navigate(ctx, html))

	el, err := page.Find(ctx, CSS("input#missing"), CSS("input#login"))
	require.NoError(t, err)
	require.NoError(t, el.Fill(ctx, "operator@example.com"))

	btn, err := page.Find(ctx, WithText("button", "confirm"))
	require.NoError(t, err)
	text, err := btn.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Confirm", text)

	found, err := page.Has(ctx, CSS("textarea"))
	require.NoError(t, err)
	assert.False(t, found)
}
