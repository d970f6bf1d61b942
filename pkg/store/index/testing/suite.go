package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IndexTestSuite is a conformance suite for index.Index implementations.
// It tests the interface contract, not implementation details.
//
// Usage:
//
//	func TestMyIndex(t *testing.T) {
//	    suite := &testing.IndexTestSuite{
//	        NewIndex: func(t *testing.T) index.Index {
//	            return myindex.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type IndexTestSuite struct {
	// NewIndex creates a fresh, empty index for each test
	NewIndex func(t *testing.T) index.Index
}

// Run executes all tests in the suite.
func (suite *IndexTestSuite) Run(t *testing.T) {
	t.Run("Put_Get", suite.testPutGet)
	t.Run("Put_Upsert_KeepsID", suite.testPutUpsert)
	t.Run("Put_MissingParent", suite.testPutMissingParent)
	t.Run("Put_ParentIsFile", suite.testPutParentIsFile)
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("Update", suite.testUpdate)
	t.Run("Update_NotFound", suite.testUpdateNotFound)
	t.Run("Remove_Subtree", suite.testRemoveSubtree)
	t.Run("Remove_NotFound", suite.testRemoveNotFound)
	t.Run("Move_Subtree", suite.testMoveSubtree)
	t.Run("Move_TargetExists", suite.testMoveTargetExists)
	t.Run("Move_IntoItself", suite.testMoveIntoItself)
	t.Run("Move_MissingParent", suite.testMoveMissingParent)
	t.Run("GetFolderContents_Ordered", suite.testFolderContentsOrdered)
	t.Run("IDs_NeverReused", suite.testIDsNeverReused)
}

func testContext() context.Context {
	return context.Background()
}

func (suite *IndexTestSuite) newIndex(t *testing.T) index.Index {
	idx := suite.NewIndex(t)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// ============================================================================
// Put / Get
// ============================================================================

func (suite *IndexTestSuite) testPutGet(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")

	now := time.Now().UTC().Truncate(time.Second)
	id, err := idx.Put(testContext(), "file.txt", index.Attributes{
		MimeType:    ptr("text/plain"),
		Size:        ptr(int64(42)),
		MTime:       &now,
		Permissions: ptr(index.PermissionAll),
		ETag:        ptr("etag-1"),
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	rec, err := idx.Get(testContext(), "file.txt")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "file.txt", rec.Path)
	assert.Equal(t, "file.txt", rec.Name)
	assert.Equal(t, "text/plain", rec.MimeType)
	assert.Equal(t, int64(42), rec.Size)
	assert.True(t, now.Equal(rec.MTime))
	assert.Equal(t, "etag-1", rec.ETag)
	assert.False(t, rec.IsDir())
}

func (suite *IndexTestSuite) testPutUpsert(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")

	id1 := mustPutFile(t, idx, "a.txt", 1)
	id2, err := idx.Put(testContext(), "a.txt", index.Attributes{Size: ptr(int64(7))})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	rec, err := idx.Get(testContext(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Size)
	assert.Equal(t, "text/plain", rec.MimeType, "untouched attributes survive an upsert")
}

func (suite *IndexTestSuite) testPutMissingParent(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")

	_, err := idx.Put(testContext(), "missing/file.txt", index.Attributes{})
	assert.ErrorIs(t, err, index.ErrParentNotFound)
}

func (suite *IndexTestSuite) testPutParentIsFile(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustPutFile(t, idx, "file", 1)

	_, err := idx.Put(testContext(), "file/child", index.Attributes{})
	assert.ErrorIs(t, err, index.ErrNotDirectory)
}

func (suite *IndexTestSuite) testGetNotFound(t *testing.T) {
	idx := suite.newIndex(t)

	_, err := idx.Get(testContext(), "nope")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

// ============================================================================
// Update
// ============================================================================

func (suite *IndexTestSuite) testUpdate(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	id := mustPutFile(t, idx, "a.txt", 3)

	mtime := time.Unix(1700000000, 0).UTC()
	require.NoError(t, idx.Update(testContext(), id, index.Attributes{MTime: &mtime}))

	rec, err := idx.Get(testContext(), "a.txt")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(rec.MTime))
	assert.Equal(t, int64(3), rec.Size)
}

func (suite *IndexTestSuite) testUpdateNotFound(t *testing.T) {
	idx := suite.newIndex(t)

	err := idx.Update(testContext(), 9999, index.Attributes{Size: ptr(int64(1))})
	assert.ErrorIs(t, err, index.ErrNotFound)
}

// ============================================================================
// Remove
// ============================================================================

func (suite *IndexTestSuite) testRemoveSubtree(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustMkdir(t, idx, "a")
	mustMkdir(t, idx, "a/b")
	mustPutFile(t, idx, "a/b/f", 1)
	mustPutFile(t, idx, "keep", 1)

	require.NoError(t, idx.Remove(testContext(), "a"))

	for _, p := range []string{"a", "a/b", "a/b/f"} {
		_, err := idx.Get(testContext(), p)
		assert.ErrorIs(t, err, index.ErrNotFound, p)
	}

	kids, err := idx.GetFolderContents(testContext(), "")
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "keep", kids[0].Name)

	// The name is free again
	mustMkdir(t, idx, "a")
}

func (suite *IndexTestSuite) testRemoveNotFound(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")

	assert.ErrorIs(t, idx.Remove(testContext(), "ghost"), index.ErrNotFound)
}

// ============================================================================
// Move
// ============================================================================

func (suite *IndexTestSuite) testMoveSubtree(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustMkdir(t, idx, "src")
	mustMkdir(t, idx, "src/sub")
	fileID := mustPutFile(t, idx, "src/sub/f", 5)
	mustMkdir(t, idx, "dst")

	require.NoError(t, idx.Move(testContext(), "src", "dst/moved"))

	_, err := idx.Get(testContext(), "src")
	assert.ErrorIs(t, err, index.ErrNotFound)
	_, err = idx.Get(testContext(), "src/sub/f")
	assert.ErrorIs(t, err, index.ErrNotFound)

	rec, err := idx.Get(testContext(), "dst/moved/sub/f")
	require.NoError(t, err)
	assert.Equal(t, fileID, rec.ID)
	assert.Equal(t, "dst/moved/sub/f", rec.Path)
	assert.Equal(t, int64(5), rec.Size)

	kids, err := idx.GetFolderContents(testContext(), "dst/moved")
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "sub", kids[0].Name)
	assert.Equal(t, "dst/moved/sub", kids[0].Path)

	root, err := idx.GetFolderContents(testContext(), "")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "dst", root[0].Name)

	// Updates by id reach the moved record
	require.NoError(t, idx.Update(testContext(), fileID, index.Attributes{Size: ptr(int64(9))}))
	rec, err = idx.Get(testContext(), "dst/moved/sub/f")
	require.NoError(t, err)
	assert.Equal(t, int64(9), rec.Size)
}

func (suite *IndexTestSuite) testMoveTargetExists(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustPutFile(t, idx, "a", 1)
	mustPutFile(t, idx, "b", 1)

	assert.ErrorIs(t, idx.Move(testContext(), "a", "b"), index.ErrAlreadyExists)
}

func (suite *IndexTestSuite) testMoveIntoItself(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustMkdir(t, idx, "a")

	assert.ErrorIs(t, idx.Move(testContext(), "a", "a/b"), index.ErrInvalidMove)
}

func (suite *IndexTestSuite) testMoveMissingParent(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustPutFile(t, idx, "a", 1)

	assert.ErrorIs(t, idx.Move(testContext(), "a", "nowhere/a"), index.ErrParentNotFound)
}

// ============================================================================
// Listing and identifiers
// ============================================================================

func (suite *IndexTestSuite) testFolderContentsOrdered(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")
	mustMkdir(t, idx, "d")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		mustPutFile(t, idx, "d/"+name, 1)
	}
	mustMkdir(t, idx, "d/beta")
	mustPutFile(t, idx, "d/beta/hidden", 1)

	kids, err := idx.GetFolderContents(testContext(), "d")
	require.NoError(t, err)

	var names []string
	for _, k := range kids {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, names)

	_, err = idx.GetFolderContents(testContext(), "missing")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func (suite *IndexTestSuite) testIDsNeverReused(t *testing.T) {
	idx := suite.newIndex(t)
	mustMkdir(t, idx, "")

	seen := make(map[uint64]bool)
	for i := 0; i < 5; i++ {
		id := mustPutFile(t, idx, "f", 1)
		assert.False(t, seen[id], "identifier %d reused", id)
		seen[id] = true
		require.NoError(t, idx.Remove(testContext(), "f"))
	}
}

// ============================================================================
// Helpers
// ============================================================================

func ptr[T any](v T) *T {
	return &v
}

func mustMkdir(t *testing.T, idx index.Index, path string) uint64 {
	t.Helper()

	id, err := idx.Put(testContext(), path, index.Attributes{
		MimeType:    ptr(index.DirectoryMimeType),
		Permissions: ptr(index.PermissionAll),
	})
	require.NoError(t, err)
	return id
}

func mustPutFile(t *testing.T, idx index.Index, path string, size int64) uint64 {
	t.Helper()

	id, err := idx.Put(testContext(), path, index.Attributes{
		MimeType:    ptr("text/plain"),
		Size:        ptr(size),
		Permissions: ptr(index.PermissionAll),
	})
	require.NoError(t, err)
	return id
}
