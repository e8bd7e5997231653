package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty directory and clears the
// environment variables the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MARATHON_CONFIG_PATH", dir)
	for _, env := range []string{
		"SECRET_KEY", "PORT", "BIND_ADDRESS", "DEBUG", "DATA_DIR",
		"BROWSER_PROFILE", "BROWSER_BIN", "BROWSER_HEADLESS",
		"ODOO_LOGIN_URL", "ODOO_START_URL", "COMPLIANCE_API_URL", "LABEL_URL",
		"MARATHON_NAVIGATION_TIMEOUT_MS", "MARATHON_STEP_TIMEOUT_MS",
		"MARATHON_REQUEST_TIMEOUT_S", "MARATHON_HISTORY_LIMIT",
		"MARATHON_MAX_ORDER_SIZE", "MARATHON_RUN_MODE",
		"MARATHON_VERIFY_CONCURRENCY", "MARATHON_VERIFY_TIMEOUT_MS",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.Headless)
	assert.Equal(t, RunModeBatch, cfg.RunMode)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "default", cfg.Source("port"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadGeneratesSecretKey(t *testing.T) {
	isolate(t)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.Len(t, first.SecretKey, 64)
	assert.Equal(t, "generated", first.Source("secret_key"))
	assert.NotEqual(t, first.SecretKey, second.SecretKey)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, `
port: 8080
debug: true
run_mode: per_item
max_order_size: 25
secret_key: from-file
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, RunModePerItem, cfg.RunMode)
	assert.Equal(t, 25, cfg.MaxOrderSize)
	assert.Equal(t, "from-file", cfg.SecretKey)
	assert.Equal(t, "file", cfg.Source("port"))
	assert.Equal(t, "file", cfg.Source("secret_key"))
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "port: 8080\n")
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "TRUE")
	t.Setenv("SECRET_KEY", "from-env")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "environment", cfg.Source("port"))
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "from-env", cfg.SecretKey)
}

func TestEnvironmentIgnoresMalformedIntegers(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "default", cfg.Source("port"))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "port: [unterminated\n")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *MarathonConfig)
		wantErr string
	}{
		{"bad port", func(c *MarathonConfig) { c.Port = 70000 }, "invalid port"},
		{"bad run mode", func(c *MarathonConfig) { c.RunMode = "parallel" }, "invalid run_mode"},
		{"relative login url", func(c *MarathonConfig) { c.OdooLoginURL = "/web/login" }, "odoo_login_url"},
		{"zero history", func(c *MarathonConfig) { c.HistoryLimit = 0 }, "history_limit"},
		{"negative order size", func(c *MarathonConfig) { c.MaxOrderSize = -1 }, "max_order_size"},
		{"zero concurrency", func(c *MarathonConfig) { c.VerifyConcurrency = 0 }, "verify_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := newDefault()
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())
	assert.Equal(t, 10*time.Second, cfg.StepTimeout())
	assert.Equal(t, 300*time.Second, cfg.RequestTimeout())

	cfg.StepTimeoutMs = 0
	assert.Equal(t, 10*time.Second, cfg.StepTimeout())
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
}

func TestFormatHidesSecretKey(t *testing.T) {
	cfg := newDefault()
	cfg.SecretKey = "super-secret"

	text := cfg.FormatText()
	assert.NotContains(t, text, "super-secret")
	assert.Contains(t, text, "********")

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "attributes")
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "port: 8080\n")

	configMu.Lock()
	globalConfig = nil
	configMu.Unlock()
	t.Cleanup(func() {
		configMu.Lock()
		globalConfig = nil
		configMu.Unlock()
	})
	require.Equal(t, 8080, Get().Port)
	secret := Get().SecretKey

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *MarathonConfig, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, func(c *MarathonConfig) {
			select {
			case changed <- c:
			default:
			}
		}, nil)
	}()

	// Keep rewriting until the watcher has registered and reports.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case c := <-changed:
			// A truncating write can surface as an intermediate reload.
			if c.Port != 8181 {
				continue
			}
			assert.Equal(t, secret, c.SecretKey, "generated key must survive reload")
			cancel()
			<-done
			return
		case <-ticker.C:
			writeConfigFile(t, dir, "port: 8181\n")
		case <-deadline:
			cancel()
			<-done
			t.Fatal("config change was not observed")
		}
	}
}
