package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/marathon"
	ConfigFileName    = "marathon.yml"
)

// Run modes understood by the automation driver
const (
	RunModeBatch   = "batch"
	RunModePerItem = "per_item"
)

// ValidRunModes is the list of valid run modes
var ValidRunModes = []string{RunModeBatch, RunModePerItem}

// MarathonConfig holds all Marathon configuration settings
type MarathonConfig struct {
	// SecretKey signs the operator session cookie
	SecretKey string `yaml:"secret_key" json:"-"`

	// Port is the HTTP listen port
	Port int `yaml:"port" json:"port"`

	// BindAddress is the HTTP listen address
	BindAddress string `yaml:"bind_address" json:"bind_address"`

	// Debug enables debug logging
	Debug bool `yaml:"debug" json:"debug"`

	// DataDir holds working data (label exports, reports)
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// BrowserProfile is the Chromium user data directory
	BrowserProfile string `yaml:"browser_profile" json:"browser_profile"`

	// BrowserBin is an explicit Chromium binary; empty lets the launcher find one
	BrowserBin string `yaml:"browser_bin" json:"browser_bin"`

	// Headless runs the browser without a window
	Headless bool `yaml:"headless" json:"headless"`

	// OdooLoginURL is the ERP login page
	OdooLoginURL string `yaml:"odoo_login_url" json:"odoo_login_url"`

	// OdooStartURL is the manufacturing order list view
	OdooStartURL string `yaml:"odoo_start_url" json:"odoo_start_url"`

	// ComplianceAPIURL is the compliance dashboard datatables endpoint
	ComplianceAPIURL string `yaml:"compliance_api_url" json:"compliance_api_url"`

	// LabelURL is the prefix encoded in every QR label, the serial is appended
	LabelURL string `yaml:"label_url" json:"label_url"`

	// NavigationTimeoutMs bounds page loads
	NavigationTimeoutMs int `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms"`

	// StepTimeoutMs bounds waiting for a single form element
	StepTimeoutMs int `yaml:"step_timeout_ms" json:"step_timeout_ms"`

	// RequestTimeoutS is the HTTP write timeout
	RequestTimeoutS int `yaml:"request_timeout_s" json:"request_timeout_s"`

	// HistoryLimit is the number of batches kept in history
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`

	// MaxOrderSize splits large production orders, 0 means unlimited
	MaxOrderSize int `yaml:"max_order_size" json:"max_order_size"`

	// RunMode is either batch (one order per product) or per_item (one order per serial)
	RunMode string `yaml:"run_mode" json:"run_mode"`

	// VerifyConcurrency is the number of parallel compliance lookups
	VerifyConcurrency int `yaml:"verify_concurrency" json:"verify_concurrency"`

	// VerifyTimeoutMs bounds a single compliance lookup
	VerifyTimeoutMs int `yaml:"verify_timeout_ms" json:"verify_timeout_ms"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *MarathonConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *MarathonConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
			globalConfig.ensureSecretKey()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment.
// A generated secret key survives reloads so existing sessions stay valid.
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	if globalConfig != nil && cfg.Source("secret_key") == "generated" {
		cfg.SecretKey = globalConfig.SecretKey
	}
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *MarathonConfig {
	return &MarathonConfig{
		Port:                5000,
		BindAddress:         "0.0.0.0",
		Debug:               false,
		DataDir:             "/tmp/marathon_data",
		BrowserProfile:      "/tmp/browser_profile",
		Headless:            true,
		OdooLoginURL:        "https://hexmodal.odoo.com/web/login",
		OdooStartURL:        "https://hexmodal.odoo.com/web#action=510&model=mrp.production&view_type=list&cids=1&menu_id=324",
		ComplianceAPIURL:    "https://dashboard.hexmodal.com/api/lights/dt/elights-list/",
		LabelURL:            "https://dashboard.hexmodal.com/lights/?s=",
		NavigationTimeoutMs: 30000,
		StepTimeoutMs:       10000,
		RequestTimeoutS:     300,
		HistoryLimit:        50,
		MaxOrderSize:        0,
		RunMode:             RunModeBatch,
		VerifyConcurrency:   4,
		VerifyTimeoutMs:     10000,
		sources:             make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*MarathonConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("MARATHON_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig MarathonConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()
	config.ensureSecretKey()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"secret_key", "port", "bind_address", "debug", "data_dir",
		"browser_profile", "browser_bin", "headless", "odoo_login_url",
		"odoo_start_url", "compliance_api_url", "label_url",
		"navigation_timeout_ms", "step_timeout_ms", "request_timeout_s",
		"history_limit", "max_order_size", "run_mode",
		"verify_concurrency", "verify_timeout_ms",
	}
}

func (c *MarathonConfig) applyFileConfig(file *MarathonConfig) {
	setString := func(name string, dst *string, val string) {
		if val != "" {
			*dst = val
			c.sources[name] = "file"
		}
	}
	setInt := func(name string, dst *int, val int) {
		if val != 0 {
			*dst = val
			c.sources[name] = "file"
		}
	}

	setString("secret_key", &c.SecretKey, file.SecretKey)
	setInt("port", &c.Port, file.Port)
	setString("bind_address", &c.BindAddress, file.BindAddress)
	if file.Debug {
		c.Debug = true
		c.sources["debug"] = "file"
	}
	setString("data_dir", &c.DataDir, file.DataDir)
	setString("browser_profile", &c.BrowserProfile, file.BrowserProfile)
	setString("browser_bin", &c.BrowserBin, file.BrowserBin)
	setString("odoo_login_url", &c.OdooLoginURL, file.OdooLoginURL)
	setString("odoo_start_url", &c.OdooStartURL, file.OdooStartURL)
	setString("compliance_api_url", &c.ComplianceAPIURL, file.ComplianceAPIURL)
	setString("label_url", &c.LabelURL, file.LabelURL)
	setInt("navigation_timeout_ms", &c.NavigationTimeoutMs, file.NavigationTimeoutMs)
	setInt("step_timeout_ms", &c.StepTimeoutMs, file.StepTimeoutMs)
	setInt("request_timeout_s", &c.RequestTimeoutS, file.RequestTimeoutS)
	setInt("history_limit", &c.HistoryLimit, file.HistoryLimit)
	setInt("max_order_size", &c.MaxOrderSize, file.MaxOrderSize)
	setString("run_mode", &c.RunMode, file.RunMode)
	setInt("verify_concurrency", &c.VerifyConcurrency, file.VerifyConcurrency)
	setInt("verify_timeout_ms", &c.VerifyTimeoutMs, file.VerifyTimeoutMs)
}

func (c *MarathonConfig) applyEnvConfig() {
	envString := func(env, name string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
			c.sources[name] = "environment"
		}
	}
	envInt := func(env, name string, dst *int) {
		if val := os.Getenv(env); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
				c.sources[name] = "environment"
			}
		}
	}
	envBool := func(env, name string, dst *bool) {
		if val := os.Getenv(env); val != "" {
			*dst = parseBool(val)
			c.sources[name] = "environment"
		}
	}

	envString("SECRET_KEY", "secret_key", &c.SecretKey)
	envInt("PORT", "port", &c.Port)
	envString("BIND_ADDRESS", "bind_address", &c.BindAddress)
	envBool("DEBUG", "debug", &c.Debug)
	envString("DATA_DIR", "data_dir", &c.DataDir)
	envString("BROWSER_PROFILE", "browser_profile", &c.BrowserProfile)
	envString("BROWSER_BIN", "browser_bin", &c.BrowserBin)
	envBool("BROWSER_HEADLESS", "headless", &c.Headless)
	envString("ODOO_LOGIN_URL", "odoo_login_url", &c.OdooLoginURL)
	envString("ODOO_START_URL", "odoo_start_url", &c.OdooStartURL)
	envString("COMPLIANCE_API_URL", "compliance_api_url", &c.ComplianceAPIURL)
	envString("LABEL_URL", "label_url", &c.LabelURL)
	envInt("MARATHON_NAVIGATION_TIMEOUT_MS", "navigation_timeout_ms", &c.NavigationTimeoutMs)
	envInt("MARATHON_STEP_TIMEOUT_MS", "step_timeout_ms", &c.StepTimeoutMs)
	envInt("MARATHON_REQUEST_TIMEOUT_S", "request_timeout_s", &c.RequestTimeoutS)
	envInt("MARATHON_HISTORY_LIMIT", "history_limit", &c.HistoryLimit)
	envInt("MARATHON_MAX_ORDER_SIZE", "max_order_size", &c.MaxOrderSize)
	envString("MARATHON_RUN_MODE", "run_mode", &c.RunMode)
	envInt("MARATHON_VERIFY_CONCURRENCY", "verify_concurrency", &c.VerifyConcurrency)
	envInt("MARATHON_VERIFY_TIMEOUT_MS", "verify_timeout_ms", &c.VerifyTimeoutMs)
}

// ensureSecretKey generates a random session key when none was configured
func (c *MarathonConfig) ensureSecretKey() {
	if c.SecretKey != "" {
		return
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("config: unable to generate secret key: %v", err))
	}
	c.SecretKey = hex.EncodeToString(buf)
	if c.sources == nil {
		c.sources = make(map[string]string)
	}
	c.sources["secret_key"] = "generated"
}

func parseBool(val string) bool {
	val = strings.ToLower(strings.TrimSpace(val))
	return val == "true" || val == "1" || val == "yes"
}

// ConfigFilePath returns the path to the config file
func (c *MarathonConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *MarathonConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Addr returns the HTTP listen address
func (c *MarathonConfig) Addr() string {
	return c.BindAddress + ":" + strconv.Itoa(c.Port)
}

// NavigationTimeout returns the page load timeout
func (c *MarathonConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// StepTimeout returns the element wait timeout
func (c *MarathonConfig) StepTimeout() time.Duration {
	if c.StepTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.StepTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the HTTP write timeout
func (c *MarathonConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutS <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.RequestTimeoutS) * time.Second
}

// VerifyTimeout returns the per-serial compliance lookup timeout
func (c *MarathonConfig) VerifyTimeout() time.Duration {
	if c.VerifyTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.VerifyTimeoutMs) * time.Millisecond
}

// Validate validates the configuration
func (c *MarathonConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	for name, raw := range map[string]string{
		"odoo_login_url":     c.OdooLoginURL,
		"odoo_start_url":     c.OdooStartURL,
		"compliance_api_url": c.ComplianceAPIURL,
		"label_url":          c.LabelURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s value: %q", name, raw)
		}
	}

	validMode := false
	for _, m := range ValidRunModes {
		if c.RunMode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid run_mode: %s", c.RunMode)
	}

	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.MaxOrderSize < 0 {
		return fmt.Errorf("max_order_size must not be negative, got %d", c.MaxOrderSize)
	}
	if c.VerifyConcurrency < 1 {
		return fmt.Errorf("verify_concurrency must be positive, got %d", c.VerifyConcurrency)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *MarathonConfig) Attributes() []Attribute {
	secret := "(not set)"
	if c.SecretKey != "" {
		secret = "********"
	}
	return []Attribute{
		{Name: "secret_key", Value: secret, Source: c.Source("secret_key")},
		{Name: "port", Value: strconv.Itoa(c.Port), Source: c.Source("port")},
		{Name: "bind_address", Value: c.BindAddress, Source: c.Source("bind_address")},
		{Name: "debug", Value: strconv.FormatBool(c.Debug), Source: c.Source("debug")},
		{Name: "data_dir", Value: c.DataDir, Source: c.Source("data_dir")},
		{Name: "browser_profile", Value: c.BrowserProfile, Source: c.Source("browser_profile")},
		{Name: "browser_bin", Value: c.BrowserBin, Source: c.Source("browser_bin")},
		{Name: "headless", Value: strconv.FormatBool(c.Headless), Source: c.Source("headless")},
		{Name: "odoo_login_url", Value: c.OdooLoginURL, Source: c.Source("odoo_login_url")},
		{Name: "odoo_start_url", Value: c.OdooStartURL, Source: c.Source("odoo_start_url")},
		{Name: "compliance_api_url", Value: c.ComplianceAPIURL, Source: c.Source("compliance_api_url")},
		{Name: "label_url", Value: c.LabelURL, Source: c.Source("label_url")},
		{Name: "navigation_timeout_ms", Value: strconv.Itoa(c.NavigationTimeoutMs), Source: c.Source("navigation_timeout_ms")},
		{Name: "step_timeout_ms", Value: strconv.Itoa(c.StepTimeoutMs), Source: c.Source("step_timeout_ms")},
		{Name: "request_timeout_s", Value: strconv.Itoa(c.RequestTimeoutS), Source: c.Source("request_timeout_s")},
		{Name: "history_limit", Value: strconv.Itoa(c.HistoryLimit), Source: c.Source("history_limit")},
		{Name: "max_order_size", Value: strconv.Itoa(c.MaxOrderSize), Source: c.Source("max_order_size")},
		{Name: "run_mode", Value: c.RunMode, Source: c.Source("run_mode")},
		{Name: "verify_concurrency", Value: strconv.Itoa(c.VerifyConcurrency), Source: c.Source("verify_concurrency")},
		{Name: "verify_timeout_ms", Value: strconv.Itoa(c.VerifyTimeoutMs), Source: c.Source("verify_timeout_ms")},
	}
}

// FormatText returns a text representation of the configuration
func (c *MarathonConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-24s %-50s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-24s %-50s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-50s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *MarathonConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
