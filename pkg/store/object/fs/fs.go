// Package fs implements an object backend on top of a go-billy filesystem.
package fs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/marmos91/objfs/pkg/store/object"
)

const (
	objectsDir = "objects"
	tmpDir     = "tmp"
)

// FSBackend implements object.Backend using a billy.Filesystem.
//
// Layout:
//   - objects/<hex(urn)>: one file per object
//   - tmp/: partially written objects, renamed into place once complete
//
// URNs are hex-encoded so that any key is a valid file name. A write is
// visible only after the final rename, so readers never see a partial object.
//
// Thread Safety:
// Concurrent writes to the same URN are last-rename-wins.
type FSBackend struct {
	fs billy.Filesystem
	id string
}

// FSBackendConfig configures the filesystem backend.
type FSBackendConfig struct {
	// Path is the root directory (required unless InMemory is set)
	Path string `mapstructure:"path"`

	// InMemory keeps all objects in a memfs filesystem
	InMemory bool `mapstructure:"in_memory"`

	// StorageID overrides the default "filesystem::<path>" identifier
	StorageID string `mapstructure:"storage_id"`
}

// NewFSBackend creates a filesystem backend, creating the root directory if needed.
func NewFSBackend(cfg FSBackendConfig) (*FSBackend, error) {
	var bfs billy.Filesystem
	if cfg.InMemory {
		bfs = memfs.New()
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("filesystem backend: path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
		bfs = osfs.New(cfg.Path)
	}

	return New(bfs, cfg.StorageID, cfg.Path)
}

// New creates a backend on an existing billy filesystem.
func New(bfs billy.Filesystem, storageID, root string) (*FSBackend, error) {
	for _, dir := range []string{objectsDir, tmpDir} {
		if err := bfs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	if storageID == "" {
		if root == "" {
			root = "memory"
		}
		storageID = "filesystem::" + root
	}

	return &FSBackend{fs: bfs, id: storageID}, nil
}

func (b *FSBackend) objectPath(urn string) string {
	return b.fs.Join(objectsDir, hex.EncodeToString([]byte(urn)))
}

func (b *FSBackend) StorageID() string {
	return b.id
}

func (b *FSBackend) ReadObject(ctx context.Context, urn string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := b.fs.Open(b.objectPath(urn))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", urn, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", urn, err)
	}

	return f, nil
}

func (b *FSBackend) WriteObject(ctx context.Context, urn string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := util.TempFile(b.fs, tmpDir, "obj-")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", urn, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("expected %d bytes, got %d", size, n)
	}
	if err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to write object %s: %w", urn, err)
	}

	if err := b.fs.Rename(tmpName, b.objectPath(urn)); err != nil {
		_ = b.fs.Remove(tmpName)
		return fmt.Errorf("failed to commit object %s: %w", urn, err)
	}

	return nil
}

func (b *FSBackend) DeleteObject(ctx context.Context, urn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.fs.Remove(b.objectPath(urn)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", urn, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to delete object %s: %w", urn, err)
	}

	return nil
}
