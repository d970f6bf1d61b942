package objfs

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/object"
)

// versionTarget returns the record and URN of the file at path.
func (s *Storage) versionTarget(ctx context.Context, op, path string) (*index.Record, string, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if rec.IsDir() {
		return nil, "", newError(ErrInvalidState, op, rec.Path, errIsDirectory)
	}
	return rec, s.urns.urn(rec.ID), nil
}

func versionError(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, object.ErrVersionNotFound), errors.Is(err, object.ErrObjectNotFound):
		return newError(ErrNotFound, op, path, err)
	case errors.Is(err, object.ErrNotSupported):
		return newError(ErrInvalidState, op, path, err)
	default:
		return newError(ErrBackendFailure, op, path, err)
	}
}

// SaveVersion snapshots the current content of a file. A path without a
// record is a no-op: a save may run before the first commit of a new file.
func (s *Storage) SaveVersion(ctx context.Context, path string) (err error) {
	defer s.observe("save_version", time.Now(), &err)

	path = Normalize(path)
	_, urn, err := s.versionTarget(ctx, "save_version", path)
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return versionError("save_version", path, s.versioner.SaveVersion(ctx, urn))
}

// GetVersions lists the saved versions of a file, newest first.
func (s *Storage) GetVersions(ctx context.Context, path string) (versions []object.Version, err error) {
	defer s.observe("get_versions", time.Now(), &err)

	path = Normalize(path)
	_, urn, err := s.versionTarget(ctx, "get_versions", path)
	if err != nil {
		return nil, err
	}

	versions, err = s.versioner.GetVersions(ctx, urn)
	return versions, versionError("get_versions", path, err)
}

func (s *Storage) GetVersion(ctx context.Context, path, versionID string) (version *object.Version, err error) {
	defer s.observe("get_version", time.Now(), &err)

	path = Normalize(path)
	_, urn, err := s.versionTarget(ctx, "get_version", path)
	if err != nil {
		return nil, err
	}

	version, err = s.versioner.GetVersion(ctx, urn, versionID)
	return version, versionError("get_version", path, err)
}

// GetContentOfVersion streams the content of one version. The caller must
// close the reader.
func (s *Storage) GetContentOfVersion(ctx context.Context, path, versionID string) (rc io.ReadCloser, err error) {
	defer s.observe("get_content_of_version", time.Now(), &err)

	path = Normalize(path)
	_, urn, err := s.versionTarget(ctx, "get_content_of_version", path)
	if err != nil {
		return nil, err
	}

	rc, err = s.versioner.GetContentOfVersion(ctx, urn, versionID)
	return rc, versionError("get_content_of_version", path, err)
}

// RestoreVersion makes a saved version the current content of a file and
// refreshes the record's size, times and entity tag.
func (s *Storage) RestoreVersion(ctx context.Context, path, versionID string) (err error) {
	defer s.observe("restore_version", time.Now(), &err)

	path = Normalize(path)
	rec, urn, err := s.versionTarget(ctx, "restore_version", path)
	if err != nil {
		return err
	}

	version, err := s.versioner.GetVersion(ctx, urn, versionID)
	if err != nil {
		return versionError("restore_version", path, err)
	}

	s.cache.evict(path)
	if err := s.versioner.RestoreVersion(ctx, urn, versionID); err != nil {
		return versionError("restore_version", path, err)
	}

	now := s.now().UTC()
	attrs := contentAttributes(rec.MimeType, version.Size, now, nil)
	if err := s.index.update(ctx, "restore_version", path, rec.ID, attrs); err != nil {
		return err
	}

	logger.Debug("objfs: restored %q to version %s", path, versionID)
	return nil
}
