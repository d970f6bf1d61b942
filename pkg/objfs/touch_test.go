package objfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouch_CreatesEmptyFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mtime := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, env.s.Touch(ctx, "empty.txt", mtime))

	rec, err := env.s.Stat(ctx, "empty.txt")
	require.NoError(t, err)
	assert.Zero(t, rec.Size)
	assert.Equal(t, "text/plain", rec.MimeType)
	assert.True(t, mtime.Equal(rec.MTime))

	urn, err := env.s.URN(ctx, "empty.txt")
	require.NoError(t, err)
	assert.True(t, env.backend.hasObject(t, urn))
	assert.Empty(t, readFile(t, env.s, "empty.txt"))
}

func TestTouch_ExistingKeepsContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "f", "data")

	before, err := env.s.Stat(ctx, "f")
	require.NoError(t, err)
	_, writes, _ := env.backend.calls()

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, env.s.Touch(ctx, "f", mtime))

	after, err := env.s.Stat(ctx, "f")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(after.MTime))
	assert.NotEqual(t, before.ETag, after.ETag)
	assert.Equal(t, before.Size, after.Size)

	_, w2, _ := env.backend.calls()
	assert.Equal(t, writes, w2)
	assert.Equal(t, "data", readFile(t, env.s, "f"))
}

func TestTouch_DefaultsToNow(t *testing.T) {
	env := newTestEnv(t)
	fixed := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	env.s.now = func() time.Time { return fixed }

	require.NoError(t, env.s.Touch(context.Background(), "f", time.Time{}))

	mtime, err := env.s.Filemtime(context.Background(), "f")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(mtime))
}

func TestTouch_MissingParent(t *testing.T) {
	env := newTestEnv(t)

	err := env.s.Touch(context.Background(), "missing/f", time.Time{})
	assert.True(t, IsInvalidState(err), "got %v", err)
}

func TestTouch_BackendFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.backend.setFailWrites(true)

	err := env.s.Touch(ctx, "f", time.Time{})
	assert.True(t, IsBackendFailure(err), "got %v", err)

	exists, err := env.s.FileExists(ctx, "f")
	require.NoError(t, err)
	assert.False(t, exists)
}
