package objfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/index/memory"
	"github.com/marmos91/objfs/pkg/store/object"
	objmemory "github.com/marmos91/objfs/pkg/store/object/memory"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected backend failure")

type recordedWrite struct {
	urn  string
	data []byte
}

// faultyBackend wraps the memory backend, records calls and fails on demand.
type faultyBackend struct {
	*objmemory.MemoryBackend

	mu             sync.Mutex
	failWrites     bool
	failDeletes    bool
	deleteNotFound bool

	writes  []recordedWrite
	reads   int
	deletes int
}

func newFaultyBackend() *faultyBackend {
	return &faultyBackend{MemoryBackend: objmemory.NewMemoryBackend(objmemory.MemoryBackendConfig{StorageID: "faulty"})}
}

func (b *faultyBackend) ReadObject(ctx context.Context, urn string) (io.ReadCloser, error) {
	b.mu.Lock()
	b.reads++
	b.mu.Unlock()
	return b.MemoryBackend.ReadObject(ctx, urn)
}

func (b *faultyBackend) WriteObject(ctx context.Context, urn string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.writes = append(b.writes, recordedWrite{urn: urn, data: data})
	fail := b.failWrites
	b.mu.Unlock()

	if fail {
		return errInjected
	}
	return b.MemoryBackend.WriteObject(ctx, urn, strings.NewReader(string(data)), size)
}

func (b *faultyBackend) DeleteObject(ctx context.Context, urn string) error {
	b.mu.Lock()
	b.deletes++
	fail, notFound := b.failDeletes, b.deleteNotFound
	b.mu.Unlock()

	if fail {
		return errInjected
	}
	if notFound {
		_ = b.MemoryBackend.DeleteObject(ctx, urn)
		return object.ErrObjectNotFound
	}
	return b.MemoryBackend.DeleteObject(ctx, urn)
}

func (b *faultyBackend) calls() (reads, writes, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads, len(b.writes), b.deletes
}

func (b *faultyBackend) setFailWrites(v bool) {
	b.mu.Lock()
	b.failWrites = v
	b.mu.Unlock()
}

func (b *faultyBackend) hasObject(t *testing.T, urn string) bool {
	t.Helper()
	_, err := b.MemoryBackend.ReadObject(context.Background(), urn)
	return err == nil
}

type testEnv struct {
	s       *Storage
	backend *faultyBackend
	index   index.Index
	staging *staging.Allocator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	idx := memory.NewMemoryIndex(memory.MemoryIndexConfig{})
	backend := newFaultyBackend()
	alloc := staging.NewMemory()

	s, err := New(Config{Index: idx, Backend: backend, Staging: alloc})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))

	return &testEnv{s: s, backend: backend, index: idx, staging: alloc}
}

func writeFile(t *testing.T, s *Storage, path, content string) {
	t.Helper()
	require.NoError(t, s.WriteFile(context.Background(), path, strings.NewReader(content)))
}

func readFile(t *testing.T, s *Storage, path string) string {
	t.Helper()
	data, err := s.ReadFile(context.Background(), path)
	require.NoError(t, err)
	return string(data)
}

func collect(t *testing.T, s *Storage, path string) []string {
	t.Helper()

	names, err := s.Opendir(context.Background(), path)
	require.NoError(t, err)

	var result []string
	for name := range names {
		result = append(result, name)
	}
	return result
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func newStorageOn(t *testing.T, backend object.Backend) *Storage {
	t.Helper()

	s, err := New(Config{Index: memory.NewMemoryIndex(memory.MemoryIndexConfig{}), Backend: backend})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}
