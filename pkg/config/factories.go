package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/index/badger"
	indexmemory "github.com/marmos91/objfs/pkg/store/index/memory"
	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/marmos91/objfs/pkg/store/object/fs"
	objectmemory "github.com/marmos91/objfs/pkg/store/object/memory"
	"github.com/marmos91/objfs/pkg/store/object/minio"
	"github.com/marmos91/objfs/pkg/store/object/s3"
	"github.com/marmos91/objfs/pkg/store/object/throttled"
	"github.com/mitchellh/mapstructure"
)

// s3Options represents S3 configuration loaded from the object.s3 section.
type s3Options struct {
	Region                string `mapstructure:"region"`
	Endpoint              string `mapstructure:"endpoint"`
	Bucket                string `mapstructure:"bucket"`
	KeyPrefix             string `mapstructure:"key_prefix"`
	AccessKeyID           string `mapstructure:"access_key_id"`
	SecretAccessKey       string `mapstructure:"secret_access_key"`
	ForcePathStyle        bool   `mapstructure:"force_path_style"`
	MaxRetries            int    `mapstructure:"max_retries"`
	Versioning            bool   `mapstructure:"versioning"`
	PurgeVersionsOnDelete bool   `mapstructure:"purge_versions_on_delete"`
	PurgeConcurrency      int    `mapstructure:"purge_concurrency"`
}

// decodeOptions decodes a type-specific section into its configuration struct.
//
// Input is weakly typed: values set through OBJFS_* environment variables
// arrive as strings.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}
	return nil
}

// CreateIndex creates a metadata index based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/store/index/memory (ephemeral)
//   - "badger": Uses pkg/store/index/badger (persistent)
func CreateIndex(ctx context.Context, cfg *IndexConfig) (index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		var opts indexmemory.MemoryIndexConfig
		if err := decodeOptions(cfg.Memory, &opts); err != nil {
			return nil, fmt.Errorf("invalid memory index config: %w", err)
		}
		return indexmemory.NewMemoryIndex(opts), nil

	case "badger":
		var opts badger.BadgerIndexConfig
		if err := decodeOptions(cfg.Badger, &opts); err != nil {
			return nil, fmt.Errorf("invalid badger index config: %w", err)
		}
		idx, err := badger.NewBadgerIndex(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger index: %w", err)
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown index type: %q (supported: memory, badger)", cfg.Type)
	}
}

// CreateBackend creates an object backend based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/store/object/memory (ephemeral, native versioning)
//   - "filesystem": Uses pkg/store/object/fs (local directory)
//   - "s3": Uses pkg/store/object/s3 (Amazon S3 or compatible storage)
//   - "minio": Uses pkg/store/object/minio (MinIO server)
//
// The backend is throttled when cfg.RateLimit sets a request rate.
// metrics may be nil.
func CreateBackend(ctx context.Context, cfg *ObjectConfig, metrics object.Metrics) (object.Backend, error) {
	backend, err := createBackend(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		logger.Info("Object backend throttled to %.1f req/s", cfg.RateLimit.RequestsPerSecond)
	}
	return throttled.Wrap(backend, cfg.RateLimit), nil
}

func createBackend(ctx context.Context, cfg *ObjectConfig, metrics object.Metrics) (object.Backend, error) {
	switch cfg.Type {
	case "memory":
		var opts objectmemory.MemoryBackendConfig
		if err := decodeOptions(cfg.Memory, &opts); err != nil {
			return nil, fmt.Errorf("invalid memory backend config: %w", err)
		}
		return objectmemory.NewMemoryBackend(opts), nil

	case "filesystem":
		var opts fs.FSBackendConfig
		if err := decodeOptions(cfg.Filesystem, &opts); err != nil {
			return nil, fmt.Errorf("invalid filesystem backend config: %w", err)
		}
		backend, err := fs.NewFSBackend(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
		}
		return backend, nil

	case "s3":
		return createS3Backend(ctx, cfg.S3, metrics)

	case "minio":
		var opts minio.Config
		if err := decodeOptions(cfg.Minio, &opts); err != nil {
			return nil, fmt.Errorf("invalid minio backend config: %w", err)
		}
		opts.Metrics = metrics
		backend, err := minio.NewMinioBackend(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio backend: %w", err)
		}
		logger.Info("MinIO backend initialized: endpoint=%s, bucket=%s", opts.Endpoint, opts.Bucket)
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown object backend type: %q", cfg.Type)
	}
}

// createS3Backend creates an S3-based object backend.
func createS3Backend(ctx context.Context, options map[string]any, metrics object.Metrics) (object.Backend, error) {
	var opts s3Options
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("invalid s3 backend config: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 backend: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 backend: region is required")
	}

	client, err := s3.NewS3Client(ctx, s3.S3ClientConfig{
		Region:          opts.Region,
		Endpoint:        opts.Endpoint,
		AccessKeyID:     opts.AccessKeyID,
		SecretAccessKey: opts.SecretAccessKey,
		MaxRetries:      opts.MaxRetries,
		ForcePathStyle:  opts.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}

	backend, err := s3.NewS3Backend(ctx, s3.S3BackendConfig{
		Client:                client,
		Bucket:                opts.Bucket,
		KeyPrefix:             opts.KeyPrefix,
		Versioning:            opts.Versioning,
		PurgeVersionsOnDelete: opts.PurgeVersionsOnDelete,
		PurgeConcurrency:      opts.PurgeConcurrency,
		Metrics:               metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	logger.Info("S3 backend initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return backend, nil
}

// Runtime holds a ready-to-use Storage together with the resources it owns.
type Runtime struct {
	Storage *objfs.Storage
	Index   index.Index
	Metrics *MetricsResult
}

// Close releases the index and flushes metrics.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.Metrics.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close index: %w", err))
	}
	return errors.Join(errs...)
}

// CreateStorage builds the index, backend, staging allocator and metrics
// described by cfg, and returns an initialized Storage.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.CreateStorage(ctx, cfg)
//	if err != nil {
//	    log.Fatalf("Failed to create storage: %v", err)
//	}
//	defer rt.Close()
func CreateStorage(ctx context.Context, cfg *Config) (*Runtime, error) {
	metricsResult := InitializeMetrics(cfg)

	idx, err := CreateIndex(ctx, &cfg.Index)
	if err != nil {
		return nil, err
	}

	backend, err := CreateBackend(ctx, &cfg.Object, metricsResult.ObjectMetrics)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	alloc, err := staging.New(cfg.Staging)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	storage, err := objfs.New(objfs.Config{
		Index:     idx,
		Backend:   backend,
		Staging:   alloc,
		StorageID: cfg.Storage.ID,
		URNPrefix: cfg.Storage.URNPrefix,
		Metrics:   metricsResult.StorageMetrics,
	})
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	if err := storage.Init(ctx); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger.Debug("Storage %s ready (index=%s, object=%s, staging=%s)",
		storage.ID(), cfg.Index.Type, cfg.Object.Type, cfg.Staging.Type)

	return &Runtime{Storage: storage, Index: idx, Metrics: metricsResult}, nil
}
