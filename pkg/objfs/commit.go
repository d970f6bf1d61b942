package objfs

import (
	"context"
	"fmt"
	"io"
	"mime"
	stdpath "path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/index"
)

const defaultMimeType = "application/octet-stream"

// commit moves staged content to the backend. It is the only path by which
// written bytes reach the object store.
//
// Steps:
//  1. Recompute size, times, mimetype and entity tag from the staged bytes
//  2. Evict the stat cache entry and upsert the index record
//  3. Write the object under the URN of the record's identifier
//  4. On a backend failure, undo step 2: a new record is removed, an
//     existing one gets its previous attributes back
//
// The staging file is released in every case.
func (s *Storage) commit(ctx context.Context, file staging.File) (err error) {
	start := time.Now()

	path, ok := s.unregister(file.Name())
	defer func() {
		if releaseErr := s.staging.Release(file); releaseErr != nil {
			logger.Warn("objfs: failed to release staging file %s: %v", file.Name(), releaseErr)
		}
	}()
	if !ok {
		return newError(ErrClosed, "commit", file.Name(), fmt.Errorf("staging file is not registered"))
	}

	size, err := staging.Size(file)
	if err != nil {
		return newError(ErrBackendFailure, "commit", path, err)
	}
	mimeType, err := sniffMimeType(path, file)
	if err != nil {
		return newError(ErrBackendFailure, "commit", path, err)
	}

	prev, found, err := s.index.lookup(ctx, "commit", path)
	if err != nil {
		return err
	}
	if found && prev.IsDir() {
		return newError(ErrInvalidState, "commit", path, errIsDirectory)
	}
	var perms *index.Permission
	if !found {
		p := index.PermissionAll
		perms = &p
	}

	s.cache.evict(path)

	id, err := s.index.put(ctx, "commit", path, contentAttributes(mimeType, size, s.now().UTC(), perms))
	if err != nil {
		return err
	}

	urn := s.urns.urn(id)
	if err := s.writeObject(ctx, urn, file, size); err != nil {
		s.metrics.RecordCommit(size, time.Since(start), err)
		logger.Error("objfs: failed to commit %q to %s: %v", path, urn, err)
		s.rollbackRecord(context.WithoutCancel(ctx), "commit", path, id, prev)
		return newError(ErrBackendFailure, "commit", path, err)
	}

	s.metrics.RecordCommit(size, time.Since(start), nil)
	logger.Debug("objfs: committed %q to %s (%d bytes, %s)", path, urn, size, mimeType)
	return nil
}

func (s *Storage) writeObject(ctx context.Context, urn string, r io.ReadSeeker, size int64) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return s.backend.WriteObject(ctx, urn, r, size)
}

// rollbackRecord restores the index after a failed backend write. prev is the
// record before the operation, nil if the operation created it.
func (s *Storage) rollbackRecord(ctx context.Context, op, path string, id uint64, prev *index.Record) {
	s.cache.evict(path)
	s.metrics.RecordRollback(op)

	var err error
	if prev == nil {
		err = s.index.remove(ctx, op, path)
	} else {
		err = s.index.update(ctx, op, path, id, index.AttributesOf(prev))
	}
	if err != nil {
		logger.Error("objfs: rollback of %q after %s failed, index may be inconsistent: %v", path, op, err)
		return
	}
	logger.Warn("objfs: rolled back %q after failed %s", path, op)
}

// abort discards a write handle without committing.
func (h *writeHandle) abort() error {
	if h.closed.Swap(true) {
		return newError(ErrClosed, "close", h.path, nil)
	}
	h.s.unregister(h.file.Name())
	return h.s.staging.Release(h.file)
}

// sniffMimeType detects the type of the staged content and rewinds r.
// Generic results defer to the file extension.
func sniffMimeType(path string, r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sniffed := baseType(detected.String())
	if sniffed == defaultMimeType || sniffed == "text/plain" {
		if byExt := mimeTypeByExtension(path); byExt != "" {
			return byExt, nil
		}
	}
	return sniffed, nil
}

func mimeTypeByExtension(path string) string {
	return baseType(mime.TypeByExtension(stdpath.Ext(path)))
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}
