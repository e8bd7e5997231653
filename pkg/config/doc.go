// Package config provides configuration management for Marathon.
//
// This package handles loading and validating the Marathon server
// configuration from a YAML file and environment variables.
//
// # Configuration Sources
//
// Configuration is loaded from:
//
//   - Environment variables (primary)
//   - Configuration file marathon.yml under MARATHON_CONFIG_PATH (optional)
//
// # Key Configuration Options
//
//   - SECRET_KEY: Session signing key (generated at startup when unset)
//   - PORT: Server listen port (default 5000)
//   - DEBUG: Debug logging (default false)
//   - DATA_DIR: Working data directory
//   - BROWSER_PROFILE: Chromium profile directory
//   - DATABASE_URL: History and statistics database
package config
