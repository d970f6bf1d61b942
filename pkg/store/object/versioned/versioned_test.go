package versioned

import (
	"context"
	"testing"

	"github.com/marmos91/objfs/pkg/store/object"
	"github.com/marmos91/objfs/pkg/store/object/memory"
	objecttesting "github.com/marmos91/objfs/pkg/store/object/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapper(t *testing.T) {
	suite := &objecttesting.VersionerTestSuite{
		NewVersioner: func(t *testing.T) (object.Backend, object.Versioner) {
			b := memory.NewMemoryBackend(memory.MemoryBackendConfig{})
			return b, Wrap(b)
		},
	}
	suite.Run(t)
}

func TestWrapper_Layout(t *testing.T) {
	ctx := context.Background()
	b := memory.NewMemoryBackend(memory.MemoryBackendConfig{})
	w := Wrap(b)

	objecttesting.WriteObject(t, b, "urn:oid:5", []byte("payload"))
	require.NoError(t, w.SaveVersion(ctx, "urn:oid:5"))

	assert.Equal(t, []byte("payload"), objecttesting.ReadObject(t, b, "urn:oid:5.v1"))
	assert.NotEmpty(t, objecttesting.ReadObject(t, b, "urn:oid:5.versions"))

	versions, err := w.GetVersions(ctx, "urn:oid:5")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1", versions[0].ID)
}

func TestWrapper_Purge(t *testing.T) {
	ctx := context.Background()
	b := memory.NewMemoryBackend(memory.MemoryBackendConfig{})
	w := Wrap(b)

	for _, content := range []string{"a", "b", "c"} {
		objecttesting.WriteObject(t, b, "urn:oid:9", []byte(content))
		require.NoError(t, w.SaveVersion(ctx, "urn:oid:9"))
	}

	require.NoError(t, w.Purge(ctx, "urn:oid:9"))

	for _, key := range []string{PayloadKey("urn:oid:9", "1"), PayloadKey("urn:oid:9", "3"), ManifestKey("urn:oid:9")} {
		_, err := b.ReadObject(ctx, key)
		assert.ErrorIs(t, err, object.ErrObjectNotFound, key)
	}

	versions, err := w.GetVersions(ctx, "urn:oid:9")
	require.NoError(t, err)
	assert.Empty(t, versions)

	// purging twice is harmless
	require.NoError(t, w.Purge(ctx, "urn:oid:9"))
}
