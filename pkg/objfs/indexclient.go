package objfs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/objfs/pkg/store/index"
)

// indexClient translates Storage calls into index operations and index
// errors into StorageError codes.
type indexClient struct {
	idx index.Index
}

// classify maps an index error to a StorageError for op on path.
func classify(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, index.ErrNotFound):
		return newError(ErrNotFound, op, path, err)
	case errors.Is(err, index.ErrAlreadyExists):
		return newError(ErrConflict, op, path, err)
	case errors.Is(err, index.ErrParentNotFound),
		errors.Is(err, index.ErrNotDirectory),
		errors.Is(err, index.ErrInvalidMove):
		return newError(ErrInvalidState, op, path, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return newError(ErrBackendFailure, op, path, err)
	}
}

// lookup returns the record at path. A missing record is (nil, false, nil).
func (c indexClient) lookup(ctx context.Context, op, path string) (*index.Record, bool, error) {
	rec, err := c.idx.Get(ctx, path)
	if errors.Is(err, index.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(op, path, err)
	}
	return rec, true, nil
}

func (c indexClient) put(ctx context.Context, op, path string, attrs index.Attributes) (uint64, error) {
	id, err := c.idx.Put(ctx, path, attrs)
	return id, classify(op, path, err)
}

func (c indexClient) update(ctx context.Context, op, path string, id uint64, attrs index.Attributes) error {
	return classify(op, path, c.idx.Update(ctx, id, attrs))
}

func (c indexClient) remove(ctx context.Context, op, path string) error {
	return classify(op, path, c.idx.Remove(ctx, path))
}

func (c indexClient) move(ctx context.Context, op, src, dst string) error {
	return classify(op, src, c.idx.Move(ctx, src, dst))
}

func (c indexClient) children(ctx context.Context, op, path string) ([]*index.Record, error) {
	kids, err := c.idx.GetFolderContents(ctx, path)
	return kids, classify(op, path, err)
}

// ============================================================================
// Attribute builders
// ============================================================================

func newETag() string {
	return uuid.NewString()
}

// dirAttributes returns the attributes of a fresh directory record.
func dirAttributes(now time.Time) index.Attributes {
	mimeType := index.DirectoryMimeType
	size := int64(0)
	perms := index.PermissionAll
	etag := newETag()

	return index.Attributes{
		MimeType:     &mimeType,
		Size:         &size,
		MTime:        &now,
		StorageMTime: &now,
		Permissions:  &perms,
		ETag:         &etag,
	}
}

// touchAttributes changes the modification time and entity tag only.
func touchAttributes(mtime time.Time) index.Attributes {
	etag := newETag()
	return index.Attributes{MTime: &mtime, ETag: &etag}
}

// contentAttributes describes new content of a file. perms is only set for
// records that do not exist yet.
func contentAttributes(mimeType string, size int64, now time.Time, perms *index.Permission) index.Attributes {
	etag := newETag()
	return index.Attributes{
		MimeType:     &mimeType,
		Size:         &size,
		MTime:        &now,
		StorageMTime: &now,
		Permissions:  perms,
		ETag:         &etag,
	}
}
