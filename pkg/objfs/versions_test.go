package objfs

import (
	"context"
	"io"
	"testing"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/marmos91/objfs/pkg/store/object/fs"
	objmemory "github.com/marmos91/objfs/pkg/store/object/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions(t *testing.T) {
	backends := map[string]func(t *testing.T) object.Backend{
		"Native": func(t *testing.T) object.Backend {
			return objmemory.NewMemoryBackend(objmemory.MemoryBackendConfig{})
		},
		"Generic": func(t *testing.T) object.Backend {
			b, err := fs.NewFSBackend(fs.FSBackendConfig{InMemory: true})
			require.NoError(t, err)
			return b
		},
	}

	for name, newBackend := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("SaveAndRestore", func(t *testing.T) {
				testSaveAndRestore(t, newStorageOn(t, newBackend(t)))
			})
			t.Run("Errors", func(t *testing.T) {
				testVersionErrors(t, newStorageOn(t, newBackend(t)))
			})
		})
	}
}

func testSaveAndRestore(t *testing.T, s *Storage) {
	ctx := context.Background()

	writeFile(t, s, "doc.txt", "first")
	require.NoError(t, s.SaveVersion(ctx, "doc.txt"))
	writeFile(t, s, "doc.txt", "second version")
	require.NoError(t, s.SaveVersion(ctx, "/doc.txt"))
	writeFile(t, s, "doc.txt", "third")

	versions, err := s.GetVersions(ctx, "doc.txt")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(14), versions[0].Size, "newest first")
	assert.Equal(t, int64(5), versions[1].Size)

	oldest := versions[1]
	v, err := s.GetVersion(ctx, "doc.txt", oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, v.ID)

	rc, err := s.GetContentOfVersion(ctx, "doc.txt", oldest.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "first", string(data))

	before, err := s.Stat(ctx, "doc.txt")
	require.NoError(t, err)

	require.NoError(t, s.RestoreVersion(ctx, "doc.txt", oldest.ID))

	assert.Equal(t, "first", readFile(t, s, "doc.txt"))
	after, err := s.Stat(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), after.Size)
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.ETag, after.ETag)
}

func testVersionErrors(t *testing.T, s *Storage) {
	ctx := context.Background()

	require.NoError(t, s.SaveVersion(ctx, "not-yet-written"), "saving a missing file is a no-op")

	_, err := s.GetVersions(ctx, "missing")
	assert.True(t, IsNotFound(err), "got %v", err)

	writeFile(t, s, "f", "x")
	versions, err := s.GetVersions(ctx, "f")
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = s.GetVersion(ctx, "f", "999999")
	assert.True(t, IsNotFound(err), "got %v", err)

	assert.True(t, IsNotFound(s.RestoreVersion(ctx, "f", "999999")))

	require.NoError(t, s.Mkdir(ctx, "d"))
	assert.True(t, IsInvalidState(s.SaveVersion(ctx, "d")))
}

func TestVersionError(t *testing.T) {
	assert.NoError(t, versionError("op", "p", nil))
	assert.True(t, IsNotFound(versionError("op", "p", object.ErrVersionNotFound)))
	assert.True(t, IsNotFound(versionError("op", "p", object.ErrObjectNotFound)))
	assert.True(t, IsInvalidState(versionError("op", "p", object.ErrNotSupported)))
	assert.True(t, IsBackendFailure(versionError("op", "p", errInjected)))
}
