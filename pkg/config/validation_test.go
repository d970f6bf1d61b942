package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidTypes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"index type", func(c *Config) { c.Index.Type = "sqlite" }},
		{"object type", func(c *Config) { c.Object.Type = "ftp" }},
		{"staging type", func(c *Config) { c.Staging.Type = "disk" }},
		{"empty urn prefix", func(c *Config) { c.Storage.URNPrefix = "" }},
		{"metrics without textfile", func(c *Config) { c.Metrics.Enabled = true }},
		{"negative rate limit", func(c *Config) { c.Object.RateLimit.RequestsPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("Expected validation error")
			}
		})
	}
}

func TestValidate_BackendSections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "badger without path",
			mutate: func(c *Config) {
				c.Index.Badger = map[string]any{}
			},
			wantErr: "db_path is required",
		},
		{
			name: "filesystem without path",
			mutate: func(c *Config) {
				c.Object.Filesystem = map[string]any{}
			},
			wantErr: "path is required",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Object.Type = "s3"
				c.Object.S3 = map[string]any{"region": "eu-west-1"}
			},
			wantErr: "bucket is required",
		},
		{
			name: "s3 without region",
			mutate: func(c *Config) {
				c.Object.Type = "s3"
				c.Object.S3 = map[string]any{"bucket": "b"}
			},
			wantErr: "region is required",
		},
		{
			name: "minio without endpoint",
			mutate: func(c *Config) {
				c.Object.Type = "minio"
				c.Object.Minio = map[string]any{"bucket": "b"}
			},
			wantErr: "endpoint and bucket are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q in error, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_InMemorySections(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Index.Badger = map[string]any{"in_memory": true}
	cfg.Object.Filesystem = map[string]any{"in_memory": "true"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected in-memory sections to be valid: %v", err)
	}
}
