// Package memory implements an in-memory metadata index.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/objfs/pkg/store/index"
)

// MemoryIndex implements index.Index using in-memory maps.
//
// It is suitable for tests, ephemeral deployments and as the reference
// implementation for the index conformance suite.
//
// Storage Model:
//   - records: path -> record (primary storage)
//   - byID: identifier -> path (reverse lookup for Update)
//   - children: directory path -> set of child names
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryIndex struct {
	mu sync.RWMutex

	records  map[string]*index.Record
	byID     map[uint64]string
	children map[string]map[string]struct{}

	// nextID is the next identifier to hand out; identifiers are never reused
	nextID uint64

	closed bool
}

// MemoryIndexConfig configures the memory index.
type MemoryIndexConfig struct {
	// FirstID is the first identifier assigned (default: 1)
	FirstID uint64 `mapstructure:"first_id"`
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(cfg MemoryIndexConfig) *MemoryIndex {
	first := cfg.FirstID
	if first == 0 {
		first = 1
	}

	return &MemoryIndex{
		records:  make(map[string]*index.Record),
		byID:     make(map[uint64]string),
		children: make(map[string]map[string]struct{}),
		nextID:   first,
	}
}

// Get returns a copy of the record at path.
func (m *MemoryIndex) Get(ctx context.Context, path string) (*index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, index.ErrClosed
	}

	rec, ok := m.records[path]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", path, index.ErrNotFound)
	}

	return rec.Clone(), nil
}

// Put creates or updates the record at path.
func (m *MemoryIndex) Put(ctx context.Context, path string, attrs index.Attributes) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, index.ErrClosed
	}

	if rec, ok := m.records[path]; ok {
		attrs.Apply(rec)
		return rec.ID, nil
	}

	if path != "" {
		parent, ok := m.records[index.Parent(path)]
		if !ok {
			return 0, fmt.Errorf("put %q: %w", path, index.ErrParentNotFound)
		}
		if !parent.IsDir() {
			return 0, fmt.Errorf("put %q: %w", path, index.ErrNotDirectory)
		}
	}

	rec := &index.Record{
		ID:   m.nextID,
		Path: path,
		Name: index.Base(path),
	}
	attrs.Apply(rec)
	m.nextID++

	m.records[path] = rec
	m.byID[rec.ID] = path
	if path != "" {
		m.addChild(index.Parent(path), rec.Name)
	}

	return rec.ID, nil
}

// Update changes the attributes of the record with the given identifier.
func (m *MemoryIndex) Update(ctx context.Context, id uint64, attrs index.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return index.ErrClosed
	}

	path, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("update id %d: %w", id, index.ErrNotFound)
	}

	attrs.Apply(m.records[path])
	return nil
}

// Remove deletes the record at path and its whole subtree.
func (m *MemoryIndex) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return index.ErrClosed
	}

	rec, ok := m.records[path]
	if !ok {
		return fmt.Errorf("remove %q: %w", path, index.ErrNotFound)
	}

	for _, p := range m.subtreeLocked(path) {
		r := m.records[p]
		delete(m.byID, r.ID)
		delete(m.records, p)
		delete(m.children, p)
	}

	if path != "" {
		m.removeChild(index.Parent(path), rec.Name)
	}

	return nil
}

// Move re-parents the subtree at src to dst.
func (m *MemoryIndex) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return index.ErrClosed
	}

	if src == dst {
		if _, ok := m.records[src]; !ok {
			return fmt.Errorf("move %q: %w", src, index.ErrNotFound)
		}
		return nil
	}

	if src == "" || index.IsWithin(dst, src) {
		return fmt.Errorf("move %q to %q: %w", src, dst, index.ErrInvalidMove)
	}

	srcRec, ok := m.records[src]
	if !ok {
		return fmt.Errorf("move %q: %w", src, index.ErrNotFound)
	}
	if _, ok := m.records[dst]; ok {
		return fmt.Errorf("move to %q: %w", dst, index.ErrAlreadyExists)
	}
	parent, ok := m.records[index.Parent(dst)]
	if !ok {
		return fmt.Errorf("move to %q: %w", dst, index.ErrParentNotFound)
	}
	if !parent.IsDir() {
		return fmt.Errorf("move to %q: %w", dst, index.ErrNotDirectory)
	}

	m.removeChild(index.Parent(src), srcRec.Name)

	for _, oldPath := range m.subtreeLocked(src) {
		newPath := index.Rebase(oldPath, src, dst)

		r := m.records[oldPath]
		delete(m.records, oldPath)
		r.Path = newPath
		r.Name = index.Base(newPath)
		m.records[newPath] = r
		m.byID[r.ID] = newPath

		if kids, ok := m.children[oldPath]; ok {
			delete(m.children, oldPath)
			m.children[newPath] = kids
		}
	}

	m.addChild(index.Parent(dst), index.Base(dst))
	return nil
}

// GetFolderContents returns the immediate children of path ordered by name.
func (m *MemoryIndex) GetFolderContents(ctx context.Context, path string) ([]*index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, index.ErrClosed
	}

	if _, ok := m.records[path]; !ok {
		return nil, fmt.Errorf("list %q: %w", path, index.ErrNotFound)
	}

	names := make([]string, 0, len(m.children[path]))
	for name := range m.children[path] {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*index.Record, 0, len(names))
	for _, name := range names {
		result = append(result, m.records[index.Join(path, name)].Clone())
	}

	return result, nil
}

// Close marks the index as closed. Subsequent calls fail with index.ErrClosed.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// subtreeLocked returns path and all its descendants, parents first.
// Caller must hold mu.
func (m *MemoryIndex) subtreeLocked(path string) []string {
	result := []string{path}
	for i := 0; i < len(result); i++ {
		for name := range m.children[result[i]] {
			result = append(result, index.Join(result[i], name))
		}
	}
	return result
}

func (m *MemoryIndex) addChild(dir, name string) {
	kids, ok := m.children[dir]
	if !ok {
		kids = make(map[string]struct{})
		m.children[dir] = kids
	}
	kids[name] = struct{}{}
}

func (m *MemoryIndex) removeChild(dir, name string) {
	if kids, ok := m.children[dir]; ok {
		delete(kids, name)
	}
}
