package objfs

import (
	"bytes"
	"context"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
)

// Touch sets the modification time of path, creating an empty file if the
// path does not exist. A zero mtime means now.
//
// The parent directory must exist. Touching an existing entry changes its
// modification time and entity tag only; its content is left alone.
func (s *Storage) Touch(ctx context.Context, path string, mtime time.Time) (err error) {
	defer s.observe("touch", time.Now(), &err)

	path = Normalize(path)
	if mtime.IsZero() {
		mtime = s.now()
	}
	mtime = mtime.UTC()

	rec, found, err := s.lookup(ctx, path)
	if err != nil {
		return err
	}
	if found {
		s.cache.evict(path)
		return s.index.update(ctx, "touch", path, rec.ID, touchAttributes(mtime))
	}

	if path == "" {
		return newError(ErrInvalidState, "touch", path, index.ErrNotFound)
	}
	parent, pfound, err := s.lookup(ctx, index.Parent(path))
	if err != nil {
		return err
	}
	if !pfound {
		return newError(ErrInvalidState, "touch", path, index.ErrParentNotFound)
	}
	if !parent.IsDir() {
		return newError(ErrInvalidState, "touch", path, index.ErrNotDirectory)
	}

	mimeType := mimeTypeByExtension(path)
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	perms := index.PermissionAll
	attrs := contentAttributes(mimeType, 0, s.now().UTC(), &perms)
	attrs.MTime = &mtime

	s.cache.evict(path)
	id, err := s.index.put(ctx, "touch", path, attrs)
	if err != nil {
		return err
	}

	urn := s.urns.urn(id)
	if err := s.backend.WriteObject(ctx, urn, bytes.NewReader(nil), 0); err != nil {
		logger.Error("objfs: failed to create empty object %s for %q: %v", urn, path, err)
		s.rollbackRecord(context.WithoutCancel(ctx), "touch", path, id, nil)
		return newError(ErrBackendFailure, "touch", path, err)
	}

	logger.Debug("objfs: touch created %q (%s)", path, urn)
	return nil
}
