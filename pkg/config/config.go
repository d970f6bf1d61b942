package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/object/throttled"
	"github.com/spf13/viper"
)

// Config represents the complete objfs configuration.
//
// This structure captures all configurable aspects of an objfs storage:
//   - Logging configuration
//   - Storage identity (storage id override, URN prefix)
//   - Metadata index selection and configuration (index-specific)
//   - Object backend selection and configuration (backend-specific)
//   - Write staging
//   - Metrics
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (OBJFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each index and backend implementation defines its own configuration type.
// The Config struct contains type-specific sections (e.g., object.s3,
// object.filesystem) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage contains adapter-wide settings
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Index specifies the metadata index type and type-specific configuration
	Index IndexConfig `mapstructure:"index" yaml:"index"`

	// Object specifies the object backend type and type-specific configuration
	Object ObjectConfig `mapstructure:"object" yaml:"object"`

	// Staging configures where writes are buffered before commit
	Staging staging.Config `mapstructure:"staging" yaml:"staging"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StorageConfig contains adapter-wide settings.
type StorageConfig struct {
	// ID overrides the default "object::store:<backend id>" storage identifier
	ID string `mapstructure:"id" yaml:"id"`

	// URNPrefix is prepended to index identifiers to form object keys
	URNPrefix string `mapstructure:"urn_prefix" yaml:"urn_prefix" validate:"required"`
}

// IndexConfig specifies metadata index configuration.
//
// The Type field determines which index implementation is used.
// Only the corresponding type-specific configuration section is used.
type IndexConfig struct {
	// Type specifies which index implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// ObjectConfig specifies object backend configuration.
//
// The Type field determines which backend implementation is used.
// Only the corresponding type-specific configuration section is used.
type ObjectConfig struct {
	// Type specifies which backend implementation to use
	// Valid values: memory, filesystem, s3, minio
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3 minio"`

	// Memory contains memory-specific configuration
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Filesystem contains filesystem-specific configuration
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 contains S3-specific configuration
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Minio contains MinIO-specific configuration
	Minio map[string]any `mapstructure:"minio" yaml:"minio,omitempty"`

	// RateLimit throttles requests to the selected backend, whatever its type
	RateLimit throttled.Config `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns on metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where metrics are written when a command exits,
	// in the node_exporter textfile collector format
	Textfile string `mapstructure:"textfile" yaml:"textfile" validate:"required_if=Enabled true"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (OBJFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use OBJFS_ prefix and underscores
	// Example: OBJFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("OBJFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only reaches keys viper already knows about
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"storage.id", "storage.urn_prefix",
		"index.type", "object.type",
		"object.rate_limit.requests_per_second", "object.rate_limit.burst",
		"staging.type", "staging.dir",
		"metrics.enabled", "metrics.textfile",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/objfs/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "objfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "objfs")
}

// getDataDir returns the directory holding the default index and objects.
//
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "objfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "objfs-data")
	}

	return filepath.Join(home, ".local", "share", "objfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
