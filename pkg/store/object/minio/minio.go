// Package minio implements an object backend on MinIO using minio-go.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

const backendName = "minio"

// MinioBackend implements object.Backend and object.Versioner for MinIO.
//
// Object keys are Prefix + URN. Native versioning is used when enabled in the
// configuration, in which case the bucket must have versioning turned on.
//
//nolint:revive // MinioBackend name matches the other backends
type MinioBackend struct {
	client *minio.Client
	bucket string
	prefix string

	versioning        bool
	deleteConcurrency int

	metrics object.Metrics
}

// Config holds MinIO backend configuration.
type Config struct {
	// Endpoint is the MinIO server address (e.g., "localhost:9000")
	Endpoint string `mapstructure:"endpoint"`

	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	// Prefix is an optional prefix for all object keys
	Prefix string `mapstructure:"prefix"`

	// Versioning exposes the bucket's native versioning
	Versioning bool `mapstructure:"versioning"`

	// DeleteConcurrency bounds parallel version deletes (default: 8)
	DeleteConcurrency int `mapstructure:"delete_concurrency"`

	// Client is an optional pre-configured MinIO client.
	// If provided, Endpoint/AccessKey/SecretKey are ignored
	Client *minio.Client `mapstructure:"-"`

	Metrics object.Metrics `mapstructure:"-"`
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required when client is not provided")
	}
	return nil
}

// NewMinioBackend creates a MinIO backend and verifies the bucket.
func NewMinioBackend(ctx context.Context, cfg Config) (*MinioBackend, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, translate(err))
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	if cfg.Versioning {
		vc, err := client.GetBucketVersioning(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to read versioning of bucket %q: %w", cfg.Bucket, translate(err))
		}
		if !vc.Enabled() {
			return nil, fmt.Errorf("versioning is not enabled on bucket %q", cfg.Bucket)
		}
	}

	concurrency := cfg.DeleteConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	return &MinioBackend{
		client:            client,
		bucket:            cfg.Bucket,
		prefix:            cfg.Prefix,
		versioning:        cfg.Versioning,
		deleteConcurrency: concurrency,
		metrics:           object.MetricsOrNoop(cfg.Metrics),
	}, nil
}

func (m *MinioBackend) key(urn string) string {
	return m.prefix + urn
}

func (m *MinioBackend) StorageID() string {
	return m.client.EndpointURL().Host + "/" + m.bucket + "/" + m.prefix
}

func (m *MinioBackend) SupportsVersioning() bool {
	return m.versioning
}

func (m *MinioBackend) ReadObject(ctx context.Context, urn string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		m.metrics.ObserveOperation(backendName, "GetObject", time.Since(start), err)
	}()

	return m.open(ctx, urn, "")
}

// open returns a reader for urn (or one of its versions). minio-go defers
// request errors to the first read, so the object is stat'ed up front.
func (m *MinioBackend) open(ctx context.Context, urn, versionID string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(urn), minio.GetObjectOptions{VersionID: versionID})
	if err != nil {
		return nil, m.wrap("read", urn, versionID, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, m.wrap("read", urn, versionID, err)
	}

	return &object.CountingReader{ReadCloser: obj, Metrics: m.metrics, Backend: backendName}, nil
}

func (m *MinioBackend) WriteObject(ctx context.Context, urn string, r io.Reader, size int64) (err error) {
	start := time.Now()
	defer func() {
		m.metrics.ObserveOperation(backendName, "PutObject", time.Since(start), err)
	}()

	info, err := m.client.PutObject(ctx, m.bucket, m.key(urn), r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("write %s: %w", urn, translate(err))
	}

	m.metrics.RecordBytes(backendName, "write", info.Size)
	return nil
}

// DeleteObject removes urn. With versioning enabled every version is removed.
func (m *MinioBackend) DeleteObject(ctx context.Context, urn string) (err error) {
	start := time.Now()
	defer func() {
		m.metrics.ObserveOperation(backendName, "RemoveObject", time.Since(start), err)
	}()

	if _, err = m.client.StatObject(ctx, m.bucket, m.key(urn), minio.StatObjectOptions{}); err != nil {
		return m.wrap("delete", urn, "", err)
	}

	if m.versioning {
		return m.removeAllVersions(ctx, urn)
	}

	if err = m.client.RemoveObject(ctx, m.bucket, m.key(urn), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", urn, translate(err))
	}
	return nil
}

func (m *MinioBackend) removeAllVersions(ctx context.Context, urn string) error {
	key := m.key(urn)

	var ids []string
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:       key,
		WithVersions: true,
	}) {
		if info.Err != nil {
			return fmt.Errorf("list versions of %s: %w", urn, translate(info.Err))
		}
		if info.Key == key {
			ids = append(ids, info.VersionID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.deleteConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			return m.client.RemoveObject(gctx, m.bucket, key, minio.RemoveObjectOptions{VersionID: id})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("delete %s: %w", urn, translate(err))
	}
	return nil
}

// wrap maps a minio error for urn to the object package sentinels.
func (m *MinioBackend) wrap(op, urn, versionID string, err error) error {
	err = translate(err)
	if versionID != "" && errors.Is(err, object.ErrObjectNotFound) {
		return fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, urn, err)
}

// translate converts MinIO error responses to object package errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchVersion":
		return object.ErrObjectNotFound
	case "InvalidArgument":
		// malformed version identifiers
		return object.ErrObjectNotFound
	}

	return fmt.Errorf("minio: %w", err)
}
