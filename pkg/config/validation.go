package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/objfs/pkg/store/index/badger"
	"github.com/marmos91/objfs/pkg/store/object/fs"
	"github.com/marmos91/objfs/pkg/store/object/minio"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for the type-specific
// sections, which are free-form maps and cannot carry tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules checks the section selected by each Type field.
func validateCustomRules(cfg *Config) error {
	switch cfg.Index.Type {
	case "badger":
		var opts badger.BadgerIndexConfig
		if err := decodeOptions(cfg.Index.Badger, &opts); err != nil {
			return fmt.Errorf("index.badger: %w", err)
		}
		if opts.DBPath == "" && !opts.InMemory {
			return fmt.Errorf("index.badger: db_path is required unless in_memory is set")
		}
	}

	if cfg.Object.RateLimit.RequestsPerSecond < 0 || cfg.Object.RateLimit.Burst < 0 {
		return fmt.Errorf("object.rate_limit: requests_per_second and burst must not be negative")
	}

	switch cfg.Object.Type {
	case "filesystem":
		var opts fs.FSBackendConfig
		if err := decodeOptions(cfg.Object.Filesystem, &opts); err != nil {
			return fmt.Errorf("object.filesystem: %w", err)
		}
		if opts.Path == "" && !opts.InMemory {
			return fmt.Errorf("object.filesystem: path is required unless in_memory is set")
		}

	case "s3":
		var opts s3Options
		if err := decodeOptions(cfg.Object.S3, &opts); err != nil {
			return fmt.Errorf("object.s3: %w", err)
		}
		if opts.Bucket == "" {
			return fmt.Errorf("object.s3: bucket is required")
		}
		if opts.Region == "" {
			return fmt.Errorf("object.s3: region is required")
		}

	case "minio":
		var opts minio.Config
		if err := decodeOptions(cfg.Object.Minio, &opts); err != nil {
			return fmt.Errorf("object.minio: %w", err)
		}
		if opts.Endpoint == "" || opts.Bucket == "" {
			return fmt.Errorf("object.minio: endpoint and bucket are required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
