package objfs

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
)

var errRootRemoval = errors.New("the root directory cannot be removed")

// Mkdir creates a directory, creating missing ancestors on the way.
//
// Returns a Conflict error if path already exists and an InvalidState error
// if an ancestor is a file.
func (s *Storage) Mkdir(ctx context.Context, path string) (err error) {
	defer s.observe("mkdir", time.Now(), &err)

	return s.mkdir(ctx, Normalize(path))
}

func (s *Storage) mkdir(ctx context.Context, path string) error {
	_, found, err := s.lookup(ctx, path)
	if err != nil {
		return err
	}
	if found {
		return newError(ErrConflict, "mkdir", path, nil)
	}

	if path != "" {
		parent := index.Parent(path)
		prec, found, err := s.lookup(ctx, parent)
		if err != nil {
			return err
		}
		switch {
		case !found:
			if err := s.mkdir(ctx, parent); err != nil && !IsConflict(err) {
				return err
			}
		case !prec.IsDir():
			return newError(ErrInvalidState, "mkdir", path, index.ErrNotDirectory)
		}
	}

	if _, err := s.index.put(ctx, "mkdir", path, dirAttributes(s.now().UTC())); err != nil {
		return err
	}

	logger.Debug("objfs: mkdir %q", path)
	return nil
}

// Rmdir removes a directory and everything below it.
//
// Files are deleted through Unlink, so their objects are removed from the
// backend. The first backend failure aborts the walk; entries already
// removed stay removed.
func (s *Storage) Rmdir(ctx context.Context, path string) (err error) {
	defer s.observe("rmdir", time.Now(), &err)

	return s.rmdir(ctx, Normalize(path))
}

func (s *Storage) rmdir(ctx context.Context, path string) error {
	rec, found, err := s.lookup(ctx, path)
	if err != nil {
		return err
	}
	if !found {
		return newError(ErrNotFound, "rmdir", path, nil)
	}
	if !rec.IsDir() {
		return newError(ErrInvalidState, "rmdir", path, index.ErrNotDirectory)
	}
	if path == "" {
		return newError(ErrInvalidState, "rmdir", path, errRootRemoval)
	}

	s.cache.evictTree(path)

	children, err := s.index.children(ctx, "rmdir", path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsDir() {
			err = s.rmdir(ctx, child.Path)
		} else {
			err = s.unlinkFile(ctx, child)
		}
		if err != nil {
			return err
		}
	}

	if err := s.index.remove(ctx, "rmdir", path); err != nil {
		return err
	}

	logger.Debug("objfs: rmdir %q", path)
	return nil
}

// Opendir lists the names of the immediate children of a directory.
//
// The returned sequence is single use: iterating it a second time yields
// nothing. Call Opendir again for a fresh listing.
func (s *Storage) Opendir(ctx context.Context, path string) (names iter.Seq[string], err error) {
	defer s.observe("opendir", time.Now(), &err)

	path = Normalize(path)

	// Listing must not be answered from stale entries of the subtree
	s.cache.evictTree(path)

	rec, err := s.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if !rec.IsDir() {
		return nil, newError(ErrInvalidState, "opendir", path, index.ErrNotDirectory)
	}

	children, err := s.index.children(ctx, "opendir", path)
	if err != nil {
		return nil, err
	}

	var consumed atomic.Bool
	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, child := range children {
			if !yield(child.Name) {
				return
			}
		}
	}, nil
}
