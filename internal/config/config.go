// Package config provides the configuration schema for latch-core.
//
// It intentionally stays small: the authorization server always binds to
// an OS-assigned loopback port (spec.md §4.4), so there is no server
// address to configure. What's left is where state lives on disk, how
// long it is retained, and the ambient logging/tracing knobs.
package config

import (
	"os"
	"path/filepath"
)

// Config is the top-level configuration for latch-core.
type Config struct {
	// Activity configures the file-backed activity event store.
	Activity ActivityConfig `yaml:"activity" mapstructure:"activity"`

	// Policy configures where policy documents are persisted when the
	// file-backed policy store is used instead of the in-memory one.
	Policy PolicyStoreConfig `yaml:"policy" mapstructure:"policy"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Tracing configures the OpenTelemetry span exporter for the
	// authorize request path.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// Vault configures the external secret resolver the wrapper launcher
	// calls through /secrets/resolve. An empty URL means secrets are
	// resolved from the process environment (vaultenv).
	Vault VaultConfig `yaml:"vault" mapstructure:"vault"`

	// Sessions configures where "register" persists session registrations
	// for "serve" to load at startup (session.Registry itself is
	// process-local and never persists — spec.md §3 Lifecycle).
	Sessions SessionsConfig `yaml:"sessions" mapstructure:"sessions"`

	// DevMode relaxes nothing security-relevant, it only turns on debug
	// logging and a more permissive default log level.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ActivityConfig configures the activity event store.
type ActivityConfig struct {
	// Dir is the directory activity log files are written to.
	// Defaults to "~/.latch/activity" if empty.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// RetentionDays bounds how long rotated files are kept.
	// Defaults to 30 if not specified or 0.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days" validate:"omitempty,min=1"`

	// MaxFileSizeMB is the rotation threshold for the current file.
	// Defaults to 64 if not specified or 0.
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb" validate:"omitempty,min=1"`
}

// PolicyStoreConfig configures the policy document store.
type PolicyStoreConfig struct {
	// Dir is the directory policy documents are persisted to when
	// Backend is "file". Empty Dir with Backend "file" is a
	// configuration error.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Backend selects the policy store implementation.
	// Valid values: "memory" (default) or "file".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory file"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	// Enabled turns on span emission for the authorize request path.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Exporter selects the span exporter.
	// Valid values: "stdout" (default) or "none".
	Exporter string `yaml:"exporter" mapstructure:"exporter" validate:"omitempty,oneof=stdout none"`
}

// VaultConfig configures the external secret resolver.
type VaultConfig struct {
	// URL is the base URL of the secret vault's resolve endpoint.
	// Empty means no vault is wired, and the process environment
	// (vaultenv) is used instead.
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
}

// SessionsConfig configures session registration persistence.
type SessionsConfig struct {
	// File is the path "register" writes to and "serve" reads from.
	// Defaults to "~/.latch/sessions.json" if empty.
	File string `yaml:"file" mapstructure:"file"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DevMode {
		c.LogLevel = "debug"
	}

	if c.Activity.Dir == "" {
		c.Activity.Dir = defaultStateDir("activity")
	}
	if c.Activity.RetentionDays == 0 {
		c.Activity.RetentionDays = 30
	}
	if c.Activity.MaxFileSizeMB == 0 {
		c.Activity.MaxFileSizeMB = 64
	}

	if c.Policy.Backend == "" {
		c.Policy.Backend = "memory"
	}
	if c.Policy.Backend == "file" && c.Policy.Dir == "" {
		c.Policy.Dir = defaultStateDir("policy")
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}

	if c.Sessions.File == "" {
		c.Sessions.File = filepath.Join(defaultStateDir(""), "sessions.json")
	}
}

// defaultStateDir returns "~/.latch/<name>", falling back to
// "./.latch/<name>" if the user's home directory cannot be determined.
func defaultStateDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".latch", name)
}
