package objfs

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/objfs/pkg/store/index/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRename_KeepsIdentifierWithoutBackendCalls(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "src"))
	require.NoError(t, env.s.Mkdir(ctx, "dst"))
	writeFile(t, env.s, "src/f", "payload")

	before, err := env.s.Stat(ctx, "src/f")
	require.NoError(t, err)
	reads, writes, deletes := env.backend.calls()

	require.NoError(t, env.s.Rename(ctx, "src/f", "dst/g"))

	r2, w2, d2 := env.backend.calls()
	assert.Equal(t, []int{reads, writes, deletes}, []int{r2, w2, d2}, "rename must not touch the backend")

	after, err := env.s.Stat(ctx, "dst/g")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "g", after.Name)

	_, err = env.s.Stat(ctx, "src/f")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "payload", readFile(t, env.s, "dst/g"))
}

func TestRename_Directory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "a/b"))
	writeFile(t, env.s, "a/b/f", "x")

	// Warm the cache for a path that is about to move
	_, err := env.s.Stat(ctx, "a/b/f")
	require.NoError(t, err)

	require.NoError(t, env.s.Rename(ctx, "a", "z"))

	_, err = env.s.Stat(ctx, "a/b/f")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "x", readFile(t, env.s, "z/b/f"))
}

func TestRename_ReplacesTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "a", "new")
	writeFile(t, env.s, "b", "old")

	oldURN, err := env.s.URN(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, env.s.Rename(ctx, "a", "b"))

	assert.Equal(t, "new", readFile(t, env.s, "b"))
	assert.False(t, env.backend.hasObject(t, oldURN))
}

func TestRename_BumpsParentMTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.s.now = func() time.Time { return clock }

	require.NoError(t, env.s.Mkdir(ctx, "dst"))
	writeFile(t, env.s, "f", "x")

	clock = clock.Add(time.Hour)
	require.NoError(t, env.s.Rename(ctx, "f", "dst/f"))

	mtime, err := env.s.Filemtime(ctx, "dst")
	require.NoError(t, err)
	assert.True(t, clock.Equal(mtime), "got %v", mtime)
}

func TestRename_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "d"))
	writeFile(t, env.s, "f", "x")

	assert.True(t, IsNotFound(env.s.Rename(ctx, "missing", "x")))
	assert.True(t, IsInvalidState(env.s.Rename(ctx, "d", "d/inner")))
	assert.True(t, IsInvalidState(env.s.Rename(ctx, "f", "nowhere/f")))
	assert.True(t, IsInvalidState(env.s.Rename(ctx, "f", "f/child")))
	assert.True(t, IsInvalidState(env.s.Rename(ctx, "", "x")))
	require.NoError(t, env.s.Rename(ctx, "f", "/f/"))
}

func TestRename_OntoAncestorKeepsSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "a/c"))
	writeFile(t, env.s, "a/b", "precious")
	urn, err := env.s.URN(ctx, "a/b")
	require.NoError(t, err)

	_, _, deletesBefore := env.backend.calls()

	assert.True(t, IsInvalidState(env.s.Rename(ctx, "a/b", "a")))
	assert.True(t, IsInvalidState(env.s.Rename(ctx, "a/c", "")))

	assert.Equal(t, "precious", readFile(t, env.s, "a/b"))
	assert.True(t, env.backend.hasObject(t, urn))
	isDir, err := env.s.IsDir(ctx, "a/c")
	require.NoError(t, err)
	assert.True(t, isDir)

	_, _, deletesAfter := env.backend.calls()
	assert.Equal(t, deletesBefore, deletesAfter, "no object may be deleted")

	// The shared namespace path of MoveFrom goes through Rename
	other, err := New(Config{Index: env.index, Backend: env.backend})
	require.NoError(t, err)
	assert.True(t, IsInvalidState(other.MoveFrom(ctx, env.s, "a/b", "a")))
	assert.Equal(t, "precious", readFile(t, env.s, "a/b"))
}

func TestCopy_MissingTargetParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "dir"))
	writeFile(t, env.s, "dir/f", "x")
	writeFile(t, env.s, "file", "y")

	assert.True(t, IsInvalidState(env.s.Copy(ctx, "dir/f", "missing/f")))
	assert.True(t, IsInvalidState(env.s.Copy(ctx, "dir", "missing/dir")))
	assert.True(t, IsInvalidState(env.s.Copy(ctx, "dir", "file/dir")))

	exists, err := env.s.FileExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists, "copy must not create ancestors of the target")
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "src/sub"))
	writeFile(t, env.s, "src/a", "A")
	writeFile(t, env.s, "src/sub/b", "B")

	require.NoError(t, env.s.Copy(ctx, "src", "dst"))

	assert.Equal(t, "A", readFile(t, env.s, "dst/a"))
	assert.Equal(t, "B", readFile(t, env.s, "dst/sub/b"))
	assert.Equal(t, "A", readFile(t, env.s, "src/a"))

	srcRec, err := env.s.Stat(ctx, "src/a")
	require.NoError(t, err)
	dstRec, err := env.s.Stat(ctx, "dst/a")
	require.NoError(t, err)
	assert.NotEqual(t, srcRec.ID, dstRec.ID, "copies get their own identifier")

	assert.True(t, IsInvalidState(env.s.Copy(ctx, "src", "src/inner")))
}

func TestMoveFrom_SharedNamespaceRenames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "f", "x")
	before, err := env.s.Stat(ctx, "f")
	require.NoError(t, err)

	// A second adapter over the same index and backend
	other, err := New(Config{Index: env.index, Backend: env.backend})
	require.NoError(t, err)

	_, writes, _ := env.backend.calls()
	require.NoError(t, other.MoveFrom(ctx, env.s, "f", "g"))

	_, w2, _ := env.backend.calls()
	assert.Equal(t, writes, w2)

	after, err := other.Stat(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
}

func TestMoveFrom_OtherStorage(t *testing.T) {
	src := newTestEnv(t)
	dst := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, src.s.Mkdir(ctx, "tree/sub"))
	writeFile(t, src.s, "tree/sub/f", "content")

	require.NoError(t, dst.s.MoveFrom(ctx, src.s, "tree", "moved"))

	assert.Equal(t, "content", readFile(t, dst.s, "moved/sub/f"))
	exists, err := src.s.FileExists(ctx, "tree")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCopyFrom_OtherStorage(t *testing.T) {
	src := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, src.s, "f.txt", "content")

	dst, err := New(Config{
		Index:   memory.NewMemoryIndex(memory.MemoryIndexConfig{FirstID: 1000}),
		Backend: newFaultyBackend(),
	})
	require.NoError(t, err)
	require.NoError(t, dst.Init(ctx))

	require.NoError(t, dst.CopyFrom(ctx, src.s, "f.txt", "copy.txt"))

	assert.Equal(t, "content", readFile(t, dst, "copy.txt"))
	assert.Equal(t, "content", readFile(t, src.s, "f.txt"))
}
