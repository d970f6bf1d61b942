package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/objfs/pkg/store/object"
	"golang.org/x/sync/errgroup"
)

func (s *S3Backend) requireVersioning() error {
	if !s.versioning {
		return fmt.Errorf("S3 versioning: %w", object.ErrNotSupported)
	}
	return nil
}

// SaveVersion checks that the object exists. The bucket already keeps a
// version for every write.
func (s *S3Backend) SaveVersion(ctx context.Context, urn string) error {
	if err := s.requireVersioning(); err != nil {
		return err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(urn)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("save version of %s: %w", urn, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to stat object in S3: %w", err)
	}
	return nil
}

// GetVersions lists the versions of urn, newest first. Delete markers are skipped.
func (s *S3Backend) GetVersions(ctx context.Context, urn string) (versions []object.Version, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(backendName, "ListObjectVersions", time.Since(start), err)
	}()

	if err = s.requireVersioning(); err != nil {
		return nil, err
	}

	items, err := s.listVersions(ctx, s.objectKey(urn))
	if err != nil {
		return nil, err
	}

	versions = make([]object.Version, 0, len(items))
	for _, item := range items {
		versions = append(versions, toVersion(item))
	}
	return versions, nil
}

func (s *S3Backend) GetVersion(ctx context.Context, urn, versionID string) (*object.Version, error) {
	if err := s.requireVersioning(); err != nil {
		return nil, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:    aws.String(s.bucket),
		Key:       aws.String(s.objectKey(urn)),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		if isNotFound(err) || isInvalidVersion(err) {
			return nil, fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
		}
		return nil, fmt.Errorf("failed to stat object version in S3: %w", err)
	}

	return &object.Version{
		ID:    versionID,
		Size:  aws.ToInt64(head.ContentLength),
		MTime: aws.ToTime(head.LastModified),
		ETag:  aws.ToString(head.ETag),
	}, nil
}

func (s *S3Backend) GetContentOfVersion(ctx context.Context, urn, versionID string) (io.ReadCloser, error) {
	if err := s.requireVersioning(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:    aws.String(s.bucket),
		Key:       aws.String(s.objectKey(urn)),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		if isNotFound(err) || isInvalidVersion(err) {
			return nil, fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
		}
		return nil, fmt.Errorf("failed to get object version from S3: %w", err)
	}

	return &object.CountingReader{ReadCloser: result.Body, Metrics: s.metrics, Backend: backendName}, nil
}

// RestoreVersion copies versionID over the current object, which itself
// becomes a new version.
func (s *S3Backend) RestoreVersion(ctx context.Context, urn, versionID string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation(backendName, "CopyObject", time.Since(start), err)
	}()

	if err = s.requireVersioning(); err != nil {
		return err
	}

	key := s.objectKey(urn)
	source := s.bucket + "/" + url.PathEscape(key) + "?versionId=" + url.QueryEscape(versionID)

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		CopySource: aws.String(source),
	})
	if err != nil {
		if isNotFound(err) || isInvalidVersion(err) {
			return fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
		}
		return fmt.Errorf("failed to restore object version in S3: %w", err)
	}
	return nil
}

// purgeVersions permanently deletes every version and delete marker of urn.
func (s *S3Backend) purgeVersions(ctx context.Context, urn string) error {
	key := s.objectKey(urn)

	var ids []string
	paginator := s3.NewListObjectVersionsPaginator(s.client, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(key),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list object versions: %w", err)
		}
		for _, v := range page.Versions {
			if aws.ToString(v.Key) == key {
				ids = append(ids, aws.ToString(v.VersionId))
			}
		}
		for _, m := range page.DeleteMarkers {
			if aws.ToString(m.Key) == key {
				ids = append(ids, aws.ToString(m.VersionId))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.purgeConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.client.DeleteObject(gctx, &s3.DeleteObjectInput{
				Bucket:    aws.String(s.bucket),
				Key:       aws.String(key),
				VersionId: aws.String(id),
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to purge versions of %s: %w", urn, err)
	}
	return nil
}

// listVersions returns the versions of exactly key, newest first.
func (s *S3Backend) listVersions(ctx context.Context, key string) ([]types.ObjectVersion, error) {
	var result []types.ObjectVersion

	paginator := s3.NewListObjectVersionsPaginator(s.client, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(key),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list object versions: %w", err)
		}
		for _, v := range page.Versions {
			if aws.ToString(v.Key) == key {
				result = append(result, v)
			}
		}
	}
	return result, nil
}

func toVersion(v types.ObjectVersion) object.Version {
	return object.Version{
		ID:    aws.ToString(v.VersionId),
		Size:  aws.ToInt64(v.Size),
		MTime: aws.ToTime(v.LastModified),
		ETag:  aws.ToString(v.ETag),
	}
}

// isInvalidVersion reports a malformed version identifier, which S3 rejects
// with 400 instead of 404.
func isInvalidVersion(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "InvalidArgument"
	}
	return false
}
