package objfs

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/object"
)

// purger is implemented by versioners that keep their versions as separate
// objects which must be deleted together with the file.
type purger interface {
	Purge(ctx context.Context, urn string) error
}

// Unlink removes a file, or a directory through Rmdir.
//
// A backend reporting the object as already gone is not an error. Any other
// backend failure leaves the record in place and is returned.
func (s *Storage) Unlink(ctx context.Context, path string) (err error) {
	defer s.observe("unlink", time.Now(), &err)

	path = Normalize(path)

	rec, found, err := s.lookup(ctx, path)
	if err != nil {
		return err
	}
	if !found {
		return newError(ErrNotFound, "unlink", path, nil)
	}
	if rec.IsDir() {
		return s.rmdir(ctx, path)
	}

	return s.unlinkFile(ctx, rec)
}

func (s *Storage) unlinkFile(ctx context.Context, rec *index.Record) error {
	s.cache.evict(rec.Path)

	urn := s.urns.urn(rec.ID)
	err := s.backend.DeleteObject(ctx, urn)
	switch {
	case errors.Is(err, object.ErrObjectNotFound):
		logger.Debug("objfs: object %s of %q already gone", urn, rec.Path)
	case err != nil:
		logger.Error("objfs: failed to delete object %s of %q: %v", urn, rec.Path, err)
		return newError(ErrBackendFailure, "unlink", rec.Path, err)
	}

	if p, ok := s.versioner.(purger); ok {
		if err := p.Purge(ctx, urn); err != nil {
			logger.Warn("objfs: failed to purge versions of %s (%q): %v", urn, rec.Path, err)
		}
	}

	if err := s.index.remove(ctx, "unlink", rec.Path); err != nil {
		return err
	}

	logger.Debug("objfs: unlink %q (%s)", rec.Path, urn)
	return nil
}
