// Package staging allocates the local scratch files that buffer writes
// before they are committed to the object store.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// File is a staging file: readable, writable and seekable.
type File = billy.File

// Allocator hands out uniquely named staging files and removes them on release.
//
// Thread Safety:
// Allocator is safe for concurrent use.
type Allocator struct {
	fs  billy.Filesystem
	dir string

	mu   sync.Mutex
	live map[string]struct{}
}

// Config configures an allocator.
type Config struct {
	// Type is "os" or "memory" (default: "os")
	Type string `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=os memory"`

	// Dir is the directory for "os" staging (default: <tmp>/objfs-staging)
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// New creates an allocator from configuration.
func New(cfg Config) (*Allocator, error) {
	switch cfg.Type {
	case "", "os":
		return NewOS(cfg.Dir)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown staging type: %q", cfg.Type)
	}
}

// NewOS creates an allocator backed by dir on the local filesystem.
func NewOS(dir string) (*Allocator, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "objfs-staging")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return newAllocator(osfs.New(dir), ""), nil
}

// NewMemory creates an allocator keeping staging files in memory.
func NewMemory() *Allocator {
	return newAllocator(memfs.New(), "")
}

func newAllocator(bfs billy.Filesystem, dir string) *Allocator {
	return &Allocator{
		fs:   bfs,
		dir:  dir,
		live: make(map[string]struct{}),
	}
}

// Allocate creates an empty staging file. ext, if not empty, is appended to
// the name (for example ".txt") so that the name carries the file type.
func (a *Allocator) Allocate(ext string) (File, error) {
	var (
		f   billy.File
		err error
	)
	if ext == "" {
		f, err = util.TempFile(a.fs, a.dir, "objfs-")
	} else {
		name := a.fs.Join(a.dir, "objfs-"+uuid.NewString()+ext)
		f, err = a.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate staging file: %w", err)
	}

	a.mu.Lock()
	a.live[f.Name()] = struct{}{}
	a.mu.Unlock()

	return f, nil
}

// Release closes f if still open and removes it. Releasing a file twice is
// an error.
func (a *Allocator) Release(f File) error {
	name := f.Name()

	a.mu.Lock()
	_, ok := a.live[name]
	delete(a.live, name)
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("staging file %s: %w", name, os.ErrClosed)
	}

	// The caller usually closed f already
	_ = f.Close()

	if err := a.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove staging file %s: %w", name, err)
	}
	return nil
}

// Live returns the number of allocated, unreleased files.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Size returns the length of f without moving its offset.
func Size(f File) (int64, error) {
	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}
