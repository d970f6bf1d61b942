package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# objfs Configuration File
#
# Values can be overridden with OBJFS_* environment variables, e.g.
# OBJFS_LOGGING_LEVEL=DEBUG or OBJFS_OBJECT_TYPE=memory.
`

// sectionComments are written above each top-level section of a generated file.
var sectionComments = map[string]string{
	"logging": "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, file path)",
	"storage": "Storage identity: id overrides \"object::store:<backend id>\", urn_prefix prefixes object keys",
	"index":   "Metadata index: type is memory or badger; only the matching section is used",
	"object": "Object backend: type is memory, filesystem, s3 or minio; only the matching section is used\n" +
		"s3 keys: region, bucket, endpoint, key_prefix, access_key_id, secret_access_key, versioning\n" +
		"minio keys: endpoint, bucket, access_key, secret_key, use_ssl, prefix, versioning\n" +
		"rate_limit throttles backend requests (requests_per_second 0 disables it)",
	"staging": "Write staging: type is os (dir, default <tmp>/objfs-staging) or memory",
	"metrics": "Metrics: when enabled, written to textfile in Prometheus text format after every command",
}

// InitConfig writes a sample configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above every
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping content alternates key and value nodes
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var b strings.Builder
	b.WriteString(configHeader)
	b.WriteString("\n")
	b.Write(out)
	return b.String(), nil
}

// Render returns cfg as YAML, as shown by "objfs config show".
func Render(cfg *Config) (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}
