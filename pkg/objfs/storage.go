// Package objfs presents a hierarchical filesystem on top of a flat object store.
//
// Architecture:
//
//	caller ─► Storage ─► statCache ─► index.Index     (structure and attributes)
//	                  └─► staging    ─► object.Backend (content, by URN)
//
// The index is the only source of structural truth. Every entry is one
// index.Record; a file's bytes live in the backend under "<prefix><id>",
// where id is the record's identifier. Directories exist only in the index.
//
// Writes are buffered in a local staging file and committed to the backend
// when the handle returned by Open is closed. A failed commit rolls the index
// back, so a record never points at an object that was not written.
//
// Concurrency:
// A Storage is safe for concurrent use, but assumes it is the only writer of
// its index and backend. Conflicting writers to the same path are serialized
// only by the index and backend themselves.
package objfs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/marmos91/objfs/pkg/store/object/versioned"
)

// Config configures a Storage.
type Config struct {
	// Index holds the namespace (required)
	Index index.Index

	// Backend holds file content (required)
	Backend object.Backend

	// Staging allocates write buffers (default: in-memory staging)
	Staging *staging.Allocator

	// StorageID overrides the default "object::store:<backend id>"
	StorageID string

	// URNPrefix overrides DefaultURNPrefix
	URNPrefix string

	// Metrics is optional
	Metrics Metrics
}

// Storage is the filesystem adapter. Create it with New and call Init once
// before use.
type Storage struct {
	index     indexClient
	backend   object.Backend
	versioner object.Versioner
	staging   *staging.Allocator
	cache     *statCache
	urns      urnMapper
	metrics   Metrics
	id        string

	// pending maps staging file names to the logical path they will commit to
	pendingMu sync.Mutex
	pending   map[string]string

	now func() time.Time
}

// New creates a Storage. Backends without native versioning get the
// generic implementation from package versioned.
func New(cfg Config) (*Storage, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("objfs: index is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("objfs: object backend is required")
	}

	alloc := cfg.Staging
	if alloc == nil {
		alloc = staging.NewMemory()
	}

	var metrics Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	id := cfg.StorageID
	if id == "" {
		id = "object::store:" + cfg.Backend.StorageID()
	}

	versioner, native := object.AsVersioner(cfg.Backend)
	if !native {
		versioner = versioned.Wrap(cfg.Backend)
	}

	logger.Debug("objfs: storage %s created (native versioning: %t)", id, native)

	return &Storage{
		index:     indexClient{idx: cfg.Index},
		backend:   cfg.Backend,
		versioner: versioner,
		staging:   alloc,
		cache:     newStatCache(),
		urns:      newURNMapper(cfg.URNPrefix),
		metrics:   metrics,
		id:        id,
		pending:   make(map[string]string),
		now:       time.Now,
	}, nil
}

// ID returns the storage identifier.
func (s *Storage) ID() string {
	return s.id
}

// Init creates the root directory record if it does not exist yet.
func (s *Storage) Init(ctx context.Context) error {
	_, found, err := s.index.lookup(ctx, "init", "")
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if _, err := s.index.put(ctx, "init", "", dirAttributes(s.now().UTC())); err != nil {
		return err
	}
	logger.Info("objfs: created root of storage %s", s.id)
	return nil
}

// URN returns the object key holding the content of the file at path.
func (s *Storage) URN(ctx context.Context, path string) (string, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return "", err
	}
	if rec.IsDir() {
		return "", newError(ErrInvalidState, "urn", rec.Path, fmt.Errorf("directories have no content"))
	}
	return s.urns.urn(rec.ID), nil
}

// PendingWrites returns the number of write handles opened but not closed.
func (s *Storage) PendingWrites() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// ============================================================================
// Stat and derived probes
// ============================================================================

// Stat returns the record at path, or a NotFound error.
func (s *Storage) Stat(ctx context.Context, path string) (*index.Record, error) {
	path = Normalize(path)

	if rec, ok := s.cache.get(path); ok {
		s.metrics.RecordCacheLookup(true)
		return rec, nil
	}
	s.metrics.RecordCacheLookup(false)

	rec, found, err := s.index.lookup(ctx, "stat", path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(ErrNotFound, "stat", path, nil)
	}

	s.cache.put(rec)
	return rec, nil
}

// lookup is Stat reporting absence as found == false.
func (s *Storage) lookup(ctx context.Context, path string) (*index.Record, bool, error) {
	rec, err := s.Stat(ctx, path)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// FileExists reports whether path has a record.
func (s *Storage) FileExists(ctx context.Context, path string) (bool, error) {
	_, found, err := s.lookup(ctx, path)
	return found, err
}

// FileType returns "dir" or "file".
func (s *Storage) FileType(ctx context.Context, path string) (string, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return "", err
	}
	if rec.IsDir() {
		return "dir", nil
	}
	return "file", nil
}

// MimeType returns the stored mimetype (index.DirectoryMimeType for directories).
func (s *Storage) MimeType(ctx context.Context, path string) (string, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return "", err
	}
	return rec.MimeType, nil
}

// IsDir reports whether path is an existing directory.
func (s *Storage) IsDir(ctx context.Context, path string) (bool, error) {
	rec, found, err := s.lookup(ctx, path)
	return found && rec.IsDir(), err
}

// IsFile reports whether path is an existing regular file.
func (s *Storage) IsFile(ctx context.Context, path string) (bool, error) {
	rec, found, err := s.lookup(ctx, path)
	return found && !rec.IsDir(), err
}

func (s *Storage) Filesize(ctx context.Context, path string) (int64, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	return rec.Size, nil
}

func (s *Storage) Filemtime(ctx context.Context, path string) (time.Time, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return rec.MTime, nil
}
