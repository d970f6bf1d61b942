// Package s3 implements an object backend on Amazon S3 or S3-compatible storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/objfs/pkg/store/object"
)

const backendName = "s3"

// S3Backend implements object.Backend using Amazon S3 or S3-compatible storage.
//
// Key Design:
//   - Object key is KeyPrefix + URN (e.g. "objfs/urn:oid:42")
//   - The bucket is flat; directory structure lives only in the index
//
// Versioning:
// When Versioning is enabled the bucket must have S3 versioning turned on.
// Every PutObject then creates a version, so SaveVersion only checks that the
// object exists. When disabled, SupportsVersioning reports false and callers
// use the generic fallback.
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	versioning       bool
	purgeOnDelete    bool
	purgeConcurrency int

	metrics object.Metrics
}

// S3BackendConfig contains configuration for the S3 backend.
type S3BackendConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string

	// Versioning exposes the bucket's native versioning
	Versioning bool

	// PurgeVersionsOnDelete deletes every version of an object on
	// DeleteObject instead of leaving a delete marker
	PurgeVersionsOnDelete bool

	// PurgeConcurrency bounds parallel version deletes (default: 8)
	PurgeConcurrency int

	// Metrics is optional
	Metrics object.Metrics
}

// NewS3Backend creates a new S3 backend and verifies bucket access.
// The bucket must already exist.
func NewS3Backend(ctx context.Context, cfg S3BackendConfig) (*S3Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	concurrency := cfg.PurgeConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	return &S3Backend{
		client:           cfg.Client,
		bucket:           cfg.Bucket,
		keyPrefix:        cfg.KeyPrefix,
		versioning:       cfg.Versioning,
		purgeOnDelete:    cfg.PurgeVersionsOnDelete,
		purgeConcurrency: concurrency,
		metrics:          object.MetricsOrNoop(cfg.Metrics),
	}, nil
}

// S3ClientConfig holds the connection settings used by NewS3Client.
type S3ClientConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// MaxRetries is the number of attempts for retryable errors (default: 10)
	MaxRetries int

	// ForcePathStyle is required by Localstack and MinIO. It is implied by
	// a custom Endpoint.
	ForcePathStyle bool
}

// NewS3Client builds an S3 client from static settings, falling back to the
// default AWS credential chain when no keys are given.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Backend) objectKey(urn string) string {
	return s.keyPrefix + urn
}

// StorageID returns "<bucket>/<prefix>".
func (s *S3Backend) StorageID() string {
	return s.bucket + "/" + s.keyPrefix
}

// SupportsVersioning reports whether native versioning is enabled.
func (s *S3Backend) SupportsVersioning() bool {
	return s.versioning
}

func (s *S3Backend) ReadObject(ctx context.Context, urn string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(backendName, "GetObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(urn)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", urn, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &object.CountingReader{ReadCloser: result.Body, Metrics: s.metrics, Backend: backendName}, nil
}

// WriteObject uploads r with PutObject. Readers that are not seekable are
// buffered in memory first, since request signing needs a rewindable body.
func (s *S3Backend) WriteObject(ctx context.Context, urn string, r io.Reader, size int64) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(backendName, "PutObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	body, ok := r.(io.ReadSeeker)
	if !ok || size < 0 {
		data, readErr := io.ReadAll(r)
		if readErr != nil {
			return fmt.Errorf("failed to buffer object %s: %w", urn, readErr)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(urn)),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to write object to S3: %w", err)
	}

	s.metrics.RecordBytes(backendName, "write", size)
	return nil
}

// DeleteObject removes the object. S3 deletes are idempotent, so existence is
// checked with HeadObject first to report ErrObjectNotFound.
func (s *S3Backend) DeleteObject(ctx context.Context, urn string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(backendName, "DeleteObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	key := s.objectKey(urn)

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("delete %s: %w", urn, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to stat object in S3: %w", err)
	}

	if s.versioning && s.purgeOnDelete {
		return s.purgeVersions(ctx, urn)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// isNotFound reports whether err is a missing key or missing version.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchVersion":
			return true
		}
	}
	return false
}
