// Package memory implements an in-memory object backend with native versioning.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/objfs/pkg/store/object"
)

// reader is a seekable stream over an immutable object payload.
type reader struct {
	*bytes.Reader
}

func (reader) Close() error { return nil }

func newReader(data []byte) io.ReadCloser {
	return reader{bytes.NewReader(data)}
}

type memoryObject struct {
	data  []byte
	mtime time.Time
}

type memoryVersion struct {
	object.Version
	data []byte
}

// MemoryBackend implements object.Backend and object.Versioner in memory.
//
// Versions are kept per URN, oldest first, and are discarded together with
// the object on DeleteObject.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryBackend struct {
	mu       sync.RWMutex
	id       string
	objects  map[string]*memoryObject
	versions map[string][]memoryVersion
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// StorageID overrides the generated storage identifier
	StorageID string `mapstructure:"storage_id"`
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend(cfg MemoryBackendConfig) *MemoryBackend {
	id := cfg.StorageID
	if id == "" {
		id = "memory::" + uuid.NewString()
	}

	return &MemoryBackend{
		id:       id,
		objects:  make(map[string]*memoryObject),
		versions: make(map[string][]memoryVersion),
	}
}

func (m *MemoryBackend) StorageID() string {
	return m.id
}

func (m *MemoryBackend) ReadObject(ctx context.Context, urn string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[urn]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", urn, object.ErrObjectNotFound)
	}

	// data is never mutated in place, sharing the slice is safe
	return newReader(obj.data), nil
}

func (m *MemoryBackend) WriteObject(ctx context.Context, urn string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("write %s: %w", urn, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("write %s: expected %d bytes, got %d", urn, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[urn] = &memoryObject{data: data, mtime: time.Now()}
	return nil
}

func (m *MemoryBackend) DeleteObject(ctx context.Context, urn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[urn]; !ok {
		return fmt.Errorf("delete %s: %w", urn, object.ErrObjectNotFound)
	}

	delete(m.objects, urn)
	delete(m.versions, urn)
	return nil
}

// ============================================================================
// Versioning
// ============================================================================

func (m *MemoryBackend) SaveVersion(ctx context.Context, urn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[urn]
	if !ok {
		return fmt.Errorf("save version of %s: %w", urn, object.ErrObjectNotFound)
	}

	m.versions[urn] = append(m.versions[urn], memoryVersion{
		Version: object.Version{
			ID:    uuid.NewString(),
			Size:  int64(len(obj.data)),
			MTime: obj.mtime,
		},
		data: obj.data,
	})
	return nil
}

func (m *MemoryBackend) GetVersions(ctx context.Context, urn string) ([]object.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	saved := m.versions[urn]
	result := make([]object.Version, 0, len(saved))
	for i := len(saved) - 1; i >= 0; i-- {
		result = append(result, saved[i].Version)
	}
	return result, nil
}

func (m *MemoryBackend) GetVersion(ctx context.Context, urn, versionID string) (*object.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, err := m.findVersionLocked(urn, versionID)
	if err != nil {
		return nil, err
	}
	version := v.Version
	return &version, nil
}

func (m *MemoryBackend) GetContentOfVersion(ctx context.Context, urn, versionID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, err := m.findVersionLocked(urn, versionID)
	if err != nil {
		return nil, err
	}
	return newReader(v.data), nil
}

func (m *MemoryBackend) RestoreVersion(ctx context.Context, urn, versionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.findVersionLocked(urn, versionID)
	if err != nil {
		return err
	}

	m.objects[urn] = &memoryObject{data: v.data, mtime: time.Now()}
	return nil
}

func (m *MemoryBackend) findVersionLocked(urn, versionID string) (*memoryVersion, error) {
	for i := range m.versions[urn] {
		if m.versions[urn][i].ID == versionID {
			return &m.versions[urn][i], nil
		}
	}
	return nil, fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
}
