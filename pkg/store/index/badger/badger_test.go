package badger

import (
	"context"
	"testing"

	"github.com/marmos91/objfs/pkg/store/index"
	indextesting "github.com/marmos91/objfs/pkg/store/index/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBadgerIndex runs the complete index conformance suite against an
// in-memory BadgerDB.
func TestBadgerIndex(t *testing.T) {
	suite := &indextesting.IndexTestSuite{
		NewIndex: func(t *testing.T) index.Index {
			idx, err := NewBadgerIndex(context.Background(), BadgerIndexConfig{InMemory: true})
			require.NoError(t, err)
			return idx
		},
	}

	suite.Run(t)
}

// TestBadgerIndex_Persistence verifies records and identifier allocation
// survive a reopen of the same database directory.
func TestBadgerIndex_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewBadgerIndex(ctx, BadgerIndexConfig{DBPath: dir})
	require.NoError(t, err)

	dirType := index.DirectoryMimeType
	_, err = idx.Put(ctx, "", index.Attributes{MimeType: &dirType})
	require.NoError(t, err)
	firstID, err := idx.Put(ctx, "kept.txt", index.Attributes{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = NewBadgerIndex(ctx, BadgerIndexConfig{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	rec, err := idx.Get(ctx, "kept.txt")
	require.NoError(t, err)
	assert.Equal(t, firstID, rec.ID)

	nextID, err := idx.Put(ctx, "new.txt", index.Attributes{})
	require.NoError(t, err)
	assert.Greater(t, nextID, firstID)
}

func TestNewBadgerIndex_RequiresPath(t *testing.T) {
	_, err := NewBadgerIndex(context.Background(), BadgerIndexConfig{})
	assert.Error(t, err)
}

func TestKeyEncoding(t *testing.T) {
	assert.Equal(t, uint64(0x0102), decodeID(encodeID(0x0102)))
	assert.Equal(t, uint64(0), decodeID([]byte{1}))
	assert.Equal(t, []byte("p:a/b"), keyPath("a/b"))
	assert.Equal(t, append(keyChildPrefix(7), "name"...), keyChild(7, "name"))
}
