package objfs

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
	"golang.org/x/sync/errgroup"
)

// copyConcurrency bounds parallel child copies per directory level.
const copyConcurrency = 4

// FS is the part of a Storage used as the source of cross-storage transfers.
type FS interface {
	ID() string
	Stat(ctx context.Context, path string) (*index.Record, error)
	Opendir(ctx context.Context, path string) (iter.Seq[string], error)
	Open(ctx context.Context, path string, mode Mode) (File, error)
	Unlink(ctx context.Context, path string) error
}

var _ FS = (*Storage)(nil)

// Rename moves the entry at source, with its subtree, to target.
//
// Only the index changes: objects are addressed by identifier, and
// identifiers survive the move. An existing target is unlinked first. The
// new parent's modification time is bumped.
func (s *Storage) Rename(ctx context.Context, source, target string) (err error) {
	defer s.observe("rename", time.Now(), &err)

	src, dst := Normalize(source), Normalize(target)
	if src == "" {
		return newError(ErrInvalidState, "rename", src, index.ErrInvalidMove)
	}

	if _, err := s.Stat(ctx, src); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	// Neither endpoint may contain the other: removing an ancestor target
	// would take the source with it
	if index.IsWithin(dst, src) || index.IsWithin(src, dst) {
		return newError(ErrInvalidState, "rename", src, index.ErrInvalidMove)
	}

	parent, err := s.requireDirectory(ctx, "rename", dst)
	if err != nil {
		return err
	}

	s.cache.evictTree(src)
	s.cache.evictTree(dst)

	existing, found, err := s.index.lookup(ctx, "rename", dst)
	if err != nil {
		return err
	}
	if found {
		if existing.IsDir() {
			err = s.rmdir(ctx, dst)
		} else {
			err = s.unlinkFile(ctx, existing)
		}
		if err != nil {
			return err
		}
	}

	if err := s.index.move(ctx, "rename", src, dst); err != nil {
		return err
	}

	if err := s.index.update(ctx, "rename", parent.Path, parent.ID, touchAttributes(s.now().UTC())); err != nil {
		logger.Warn("objfs: failed to update mtime of %q after rename: %v", parent.Path, err)
	}

	logger.Debug("objfs: rename %q -> %q", src, dst)
	return nil
}

// requireDirectory returns the parent record of path, failing with
// InvalidState if it is absent or a file.
func (s *Storage) requireDirectory(ctx context.Context, op, path string) (*index.Record, error) {
	parent, found, err := s.lookup(ctx, index.Parent(path))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(ErrInvalidState, op, path, index.ErrParentNotFound)
	}
	if !parent.IsDir() {
		return nil, newError(ErrInvalidState, op, path, index.ErrNotDirectory)
	}
	return parent, nil
}

// Copy copies source, recursively for directories, to target by reading and
// rewriting every file.
func (s *Storage) Copy(ctx context.Context, source, target string) (err error) {
	defer s.observe("copy", time.Now(), &err)

	return s.copyFrom(ctx, s, Normalize(source), Normalize(target))
}

// MoveFrom moves path src of another storage to dst in s.
//
// When both storages share the index and the backend, this is a Rename.
// Otherwise the entry is copied and then unlinked from the source.
func (s *Storage) MoveFrom(ctx context.Context, from FS, src, dst string) (err error) {
	defer s.observe("move_from", time.Now(), &err)

	src, dst = Normalize(src), Normalize(dst)

	if other, ok := from.(*Storage); ok && s.sharesNamespace(other) {
		return s.Rename(ctx, src, dst)
	}

	if err := s.copyFrom(ctx, from, src, dst); err != nil {
		return err
	}
	return from.Unlink(ctx, src)
}

// CopyFrom copies path src of another storage to dst in s.
func (s *Storage) CopyFrom(ctx context.Context, from FS, src, dst string) (err error) {
	defer s.observe("copy_from", time.Now(), &err)

	return s.copyFrom(ctx, from, Normalize(src), Normalize(dst))
}

// sharesNamespace reports whether other addresses the same records and objects.
func (s *Storage) sharesNamespace(other *Storage) bool {
	if other == s {
		return true
	}
	return other.index.idx == s.index.idx &&
		other.backend.StorageID() == s.backend.StorageID() &&
		other.urns == s.urns
}

func (s *Storage) copyFrom(ctx context.Context, from FS, src, dst string) error {
	rec, err := from.Stat(ctx, src)
	if err != nil {
		return err
	}
	if rec.IsDir() && from == FS(s) && index.IsWithin(dst, src) {
		return newError(ErrInvalidState, "copy", src, index.ErrInvalidMove)
	}
	if _, err := s.requireDirectory(ctx, "copy", dst); err != nil {
		return err
	}

	s.cache.evictTree(dst)

	if err := s.copyTree(ctx, from, src, rec, dst); err != nil {
		return err
	}

	logger.Debug("objfs: copied %s:%q -> %q", from.ID(), src, dst)
	return nil
}

func (s *Storage) copyTree(ctx context.Context, from FS, src string, rec *index.Record, dst string) error {
	if !rec.IsDir() {
		return s.copyFile(ctx, from, src, dst)
	}

	if err := s.mkdir(ctx, dst); err != nil && !IsConflict(err) {
		return err
	}

	names, err := from.Opendir(ctx, src)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for name := range names {
		childSrc, childDst := index.Join(src, name), index.Join(dst, name)
		g.Go(func() error {
			child, err := from.Stat(gctx, childSrc)
			if err != nil {
				return err
			}
			return s.copyTree(gctx, from, childSrc, child, childDst)
		})
	}
	return g.Wait()
}

func (s *Storage) copyFile(ctx context.Context, from FS, src, dst string) error {
	in, err := from.Open(ctx, src, ModeRead)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := s.Open(ctx, dst, ModeWrite)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.(*writeHandle).abort()
		return newError(ErrBackendFailure, "copy", dst, err)
	}
	return out.Close()
}
