package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "debug"

index:
  type: "memory"

object:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Storage.URNPrefix != "urn:oid:" {
		t.Errorf("Expected default urn prefix 'urn:oid:', got %q", cfg.Storage.URNPrefix)
	}
	if cfg.Staging.Type != "os" {
		t.Errorf("Expected default staging type 'os', got %q", cfg.Staging.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Point the default location at an empty directory
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("XDG_DATA_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Index.Type != "badger" {
		t.Errorf("Expected default index type 'badger', got %q", cfg.Index.Type)
	}
	if cfg.Object.Type != "filesystem" {
		t.Errorf("Expected default object type 'filesystem', got %q", cfg.Object.Type)
	}
	if got := cfg.Object.Filesystem["path"]; got != filepath.Join(tmpDir, "objfs", "objects") {
		t.Errorf("Expected objects under XDG_DATA_HOME, got %v", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[index]
type = "memory"

[object]
type = "filesystem"

[object.filesystem]
in_memory = true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Object.Filesystem["in_memory"] != true {
		t.Errorf("Expected in_memory true, got %v", cfg.Object.Filesystem["in_memory"])
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
index:
  type: "memory"
object:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("OBJFS_LOGGING_LEVEL", "ERROR")
	t.Setenv("OBJFS_STORAGE_URN_PREFIX", "tenant:")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level from environment 'ERROR', got %q", cfg.Logging.Level)
	}
	if cfg.Storage.URNPrefix != "tenant:" {
		t.Errorf("Expected urn prefix from environment 'tenant:', got %q", cfg.Storage.URNPrefix)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
object:
  type: "s3"
  s3:
    region: "us-east-1"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for s3 without bucket")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path := GetDefaultConfigPath()
	if path != filepath.Join("/tmp/xdg", "objfs", "config.yaml") {
		t.Errorf("Unexpected default config path %q", path)
	}
	if GetConfigDir() != filepath.Join("/tmp/xdg", "objfs") {
		t.Errorf("Unexpected config dir %q", GetConfigDir())
	}
}

func TestLoad_RateLimitFromEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("object:\n  type: memory\nindex:\n  type: memory\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("OBJFS_OBJECT_RATE_LIMIT_REQUESTS_PER_SECOND", "250")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Object.RateLimit.RequestsPerSecond != 250 {
		t.Errorf("Expected rate limit 250 from environment, got %v", cfg.Object.RateLimit.RequestsPerSecond)
	}
}
