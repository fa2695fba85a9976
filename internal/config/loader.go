package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for latch.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the latch-core binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("latch")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: LATCH_ACTIVITY_DIR, LATCH_LOG_LEVEL, ...
	viper.SetEnvPrefix("LATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a latch config file with
// an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".latch"),
		"/etc/latch",
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "latch"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the config keys env overrides are expected for.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("activity.dir")
	_ = viper.BindEnv("activity.retention_days")
	_ = viper.BindEnv("activity.max_file_size_mb")
	_ = viper.BindEnv("policy.backend")
	_ = viper.BindEnv("policy.dir")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.exporter")
	_ = viper.BindEnv("vault.url")
	_ = viper.BindEnv("sessions.file")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the validated Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or empty string if none was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
