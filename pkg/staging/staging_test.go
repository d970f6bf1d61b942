package staging

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocators(t *testing.T) map[string]*Allocator {
	osAlloc, err := NewOS(t.TempDir())
	require.NoError(t, err)

	return map[string]*Allocator{
		"os":     osAlloc,
		"memory": NewMemory(),
	}
}

func TestAllocator_RoundTrip(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			f, err := a.Allocate(".txt")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(f.Name(), ".txt"))
			assert.Equal(t, 1, a.Live())

			_, err = f.Write([]byte("hello"))
			require.NoError(t, err)

			size, err := Size(f)
			require.NoError(t, err)
			assert.Equal(t, int64(5), size)

			_, err = f.Seek(0, io.SeekStart)
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			require.NoError(t, a.Release(f))
			assert.Equal(t, 0, a.Live())
		})
	}
}

func TestAllocator_UniqueNames(t *testing.T) {
	a := NewMemory()

	f1, err := a.Allocate("")
	require.NoError(t, err)
	f2, err := a.Allocate("")
	require.NoError(t, err)
	assert.NotEqual(t, f1.Name(), f2.Name())

	require.NoError(t, a.Release(f1))
	require.NoError(t, a.Release(f2))
}

func TestAllocator_DoubleRelease(t *testing.T) {
	a := NewMemory()

	f, err := a.Allocate("")
	require.NoError(t, err)
	require.NoError(t, a.Release(f))

	assert.ErrorIs(t, a.Release(f), os.ErrClosed)
}

func TestAllocator_ReleaseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	a, err := NewOS(dir)
	require.NoError(t, err)

	f, err := a.Allocate(".bin")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, a.Release(f))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew(t *testing.T) {
	a, err := New(Config{Type: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = New(Config{Type: "tape"})
	assert.Error(t, err)

	a, err = New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestSize_KeepsOffset(t *testing.T) {
	a := NewMemory()
	f, err := a.Allocate("")
	require.NoError(t, err)
	defer func() { _ = a.Release(f) }()

	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = f.Seek(3, io.SeekStart)
	require.NoError(t, err)

	size, err := Size(f)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
}
