package minio

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/minio/minio-go/v7"
)

func (m *MinioBackend) requireVersioning() error {
	if !m.versioning {
		return fmt.Errorf("minio versioning: %w", object.ErrNotSupported)
	}
	return nil
}

// SaveVersion only checks that urn exists: the bucket versions every write.
func (m *MinioBackend) SaveVersion(ctx context.Context, urn string) error {
	if err := m.requireVersioning(); err != nil {
		return err
	}

	if _, err := m.client.StatObject(ctx, m.bucket, m.key(urn), minio.StatObjectOptions{}); err != nil {
		return m.wrap("save version of", urn, "", err)
	}
	return nil
}

func (m *MinioBackend) GetVersions(ctx context.Context, urn string) ([]object.Version, error) {
	if err := m.requireVersioning(); err != nil {
		return nil, err
	}

	key := m.key(urn)

	var versions []object.Version
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:       key,
		WithVersions: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list versions of %s: %w", urn, translate(info.Err))
		}
		if info.Key != key || info.IsDeleteMarker {
			continue
		}
		versions = append(versions, object.Version{
			ID:    info.VersionID,
			Size:  info.Size,
			MTime: info.LastModified,
			ETag:  info.ETag,
		})
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].MTime.After(versions[j].MTime)
	})
	return versions, nil
}

func (m *MinioBackend) GetVersion(ctx context.Context, urn, versionID string) (*object.Version, error) {
	if err := m.requireVersioning(); err != nil {
		return nil, err
	}

	info, err := m.client.StatObject(ctx, m.bucket, m.key(urn), minio.StatObjectOptions{VersionID: versionID})
	if err != nil {
		return nil, m.wrap("stat", urn, versionID, err)
	}

	return &object.Version{
		ID:    versionID,
		Size:  info.Size,
		MTime: info.LastModified,
		ETag:  info.ETag,
	}, nil
}

func (m *MinioBackend) GetContentOfVersion(ctx context.Context, urn, versionID string) (io.ReadCloser, error) {
	if err := m.requireVersioning(); err != nil {
		return nil, err
	}
	return m.open(ctx, urn, versionID)
}

// RestoreVersion server-side copies versionID over the current object.
func (m *MinioBackend) RestoreVersion(ctx context.Context, urn, versionID string) error {
	if err := m.requireVersioning(); err != nil {
		return err
	}

	key := m.key(urn)
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: key},
		minio.CopySrcOptions{Bucket: m.bucket, Object: key, VersionID: versionID},
	)
	if err != nil {
		return m.wrap("restore", urn, versionID, err)
	}
	return nil
}
