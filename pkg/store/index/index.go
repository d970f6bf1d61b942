// Package index defines the metadata index contract used by objfs.
//
// The index is the single source of structural truth for the emulated
// filesystem. Every entry (file or directory) is one Record keyed by its
// normalized path; the object store only ever sees the Record's identifier.
//
// Path Conventions:
//   - Paths are normalized: no leading or trailing "/", no duplicate "/"
//   - The empty string is the root directory
//   - The parent of a top-level entry is the root ("")
//
// Identifier Guarantees:
//   - Identifiers are assigned by the index on first Put
//   - Identifiers start at 1 and are never reused by the same index
//   - Identifiers survive Move (rename is a metadata-only operation)
package index

import (
	"context"
	"strings"
	"time"
)

// DirectoryMimeType marks a Record as a directory. Any other mimetype is a regular file.
const DirectoryMimeType = "httpd/unix-directory"

// Permission is the bitmask stored with every Record.
type Permission uint32

const (
	PermissionRead   Permission = 1
	PermissionUpdate Permission = 2
	PermissionCreate Permission = 4
	PermissionDelete Permission = 8
	PermissionShare  Permission = 16
	PermissionAll    Permission = 31
)

// Record is the attribute record for one filesystem entry.
type Record struct {
	// ID is the opaque, stable identifier assigned by the index
	ID uint64 `json:"id"`

	// Path is the normalized path ("" for the root)
	Path string `json:"path"`

	// Name is the last path component ("" for the root)
	Name string `json:"name"`

	// MimeType is DirectoryMimeType for directories
	MimeType string `json:"mimetype"`

	// Size is the content length in bytes (0 for directories)
	Size int64 `json:"size"`

	// MTime is the user-visible modification time
	MTime time.Time `json:"mtime"`

	// StorageMTime is the time the record was last written by the adapter
	StorageMTime time.Time `json:"storage_mtime"`

	Permissions Permission `json:"permissions"`

	// ETag changes on every mutation of the entry
	ETag string `json:"etag"`
}

// IsDir reports whether the record denotes a directory.
func (r *Record) IsDir() bool {
	return r.MimeType == DirectoryMimeType
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Attributes is a partial set of record fields. Nil fields are left untouched
// by Update and take their zero value on the first Put of a path.
type Attributes struct {
	MimeType     *string
	Size         *int64
	MTime        *time.Time
	StorageMTime *time.Time
	Permissions  *Permission
	ETag         *string
}

// Apply copies every non-nil attribute onto r.
func (a Attributes) Apply(r *Record) {
	if a.MimeType != nil {
		r.MimeType = *a.MimeType
	}
	if a.Size != nil {
		r.Size = *a.Size
	}
	if a.MTime != nil {
		r.MTime = *a.MTime
	}
	if a.StorageMTime != nil {
		r.StorageMTime = *a.StorageMTime
	}
	if a.Permissions != nil {
		r.Permissions = *a.Permissions
	}
	if a.ETag != nil {
		r.ETag = *a.ETag
	}
}

// AttributesOf returns the full attribute set of r. Useful for restoring a
// record to a previous state.
func AttributesOf(r *Record) Attributes {
	mimeType := r.MimeType
	size := r.Size
	mtime := r.MTime
	storageMTime := r.StorageMTime
	perms := r.Permissions
	etag := r.ETag

	return Attributes{
		MimeType:     &mimeType,
		Size:         &size,
		MTime:        &mtime,
		StorageMTime: &storageMTime,
		Permissions:  &perms,
		ETag:         &etag,
	}
}

// Index is the persistent path-to-attributes store with hierarchical queries.
//
// Implementations must be safe for concurrent use. They are not required to
// serialize conflicting writers beyond keeping their own structures consistent.
type Index interface {
	// Get returns the record at path, or ErrNotFound.
	Get(ctx context.Context, path string) (*Record, error)

	// Put creates or updates the record at path and returns its identifier.
	//
	// An existing record keeps its identifier and only the non-nil attributes
	// change. A new record requires an existing parent directory
	// (ErrParentNotFound, ErrNotDirectory), except for the root.
	Put(ctx context.Context, path string, attrs Attributes) (uint64, error)

	// Update changes the attributes of the record with the given identifier.
	Update(ctx context.Context, id uint64, attrs Attributes) error

	// Remove deletes the record at path together with all its descendants.
	Remove(ctx context.Context, path string) error

	// Move re-parents the subtree rooted at src to dst, preserving identifiers.
	//
	// Returns ErrNotFound if src is absent, ErrAlreadyExists if dst is taken,
	// ErrParentNotFound if dst's parent is absent and ErrInvalidMove when dst
	// lies inside src.
	Move(ctx context.Context, src, dst string) error

	// GetFolderContents returns the immediate children of path ordered by name.
	GetFolderContents(ctx context.Context, path string) ([]*Record, error)

	// Close releases resources held by the index.
	Close() error
}

// Parent returns the parent of a normalized path ("" for top-level entries and the root).
func Parent(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last component of a normalized path.
func Base(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

// Join appends name to a normalized directory path.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// IsWithin reports whether path equals root or is a descendant of it.
func IsWithin(path, root string) bool {
	if root == "" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// Rebase rewrites a path inside src to the same relative location under dst.
func Rebase(path, src, dst string) string {
	if path == src {
		return dst
	}
	rel := strings.TrimPrefix(path, src+"/")
	if src == "" {
		rel = path
	}
	return Join(dst, rel)
}
