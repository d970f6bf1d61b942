package objfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"r", ModeRead},
		{"rb", ModeRead},
		{"w", ModeWrite},
		{"wb+", ModeWrite},
		{"a", ModeAppend},
		{"ab", ModeAppend},
		{"r+", ModeReadWrite},
		{"c", ModeReadWrite},
		{"x", ModeCreate},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("q")
	assert.Error(t, err)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "dir"))

	writeFile(t, env.s, "/dir/notes.txt", "hello world")

	assert.Equal(t, "hello world", readFile(t, env.s, "dir/notes.txt"))

	rec, err := env.s.Stat(ctx, "dir/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec.Size)
	assert.Equal(t, "text/plain", rec.MimeType)
	assert.False(t, rec.IsDir())

	kind, err := env.s.FileType(ctx, "dir/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "file", kind)

	assert.Zero(t, env.staging.Live())
	assert.Zero(t, env.s.PendingWrites())
}

func TestWrite_BuffersUntilClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.s.Open(ctx, "f.bin", ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, env.s.PendingWrites())

	for i := 0; i < 10; i++ {
		_, err := f.Write([]byte{byte('0' + i)})
		require.NoError(t, err)
	}

	_, writes, _ := env.backend.calls()
	assert.Zero(t, writes, "nothing reaches the backend before close")

	require.NoError(t, f.Close())

	env.backend.mu.Lock()
	require.Len(t, env.backend.writes, 1)
	assert.Equal(t, []byte("0123456789"), env.backend.writes[0].data)
	env.backend.mu.Unlock()

	assert.Zero(t, env.s.PendingWrites())
	assert.Zero(t, env.staging.Live())
}

func TestWrite_DoubleClose(t *testing.T) {
	env := newTestEnv(t)

	f, err := env.s.Open(context.Background(), "f", ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = f.Close()
	assert.True(t, IsClosed(err), "got %v", err)

	_, writes, _ := env.backend.calls()
	assert.Equal(t, 1, writes)
}

func TestCommit_FailureRemovesNewRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.backend.setFailWrites(true)

	f, err := env.s.Open(ctx, "new.txt", ModeWrite)
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)

	err = f.Close()
	assert.True(t, IsBackendFailure(err), "got %v", err)
	assert.ErrorIs(t, err, errInjected)

	_, err = env.s.Stat(ctx, "new.txt")
	assert.True(t, IsNotFound(err), "the record must be rolled back, got %v", err)

	env.backend.mu.Lock()
	require.Len(t, env.backend.writes, 1)
	assert.Len(t, env.backend.writes[0].data, 10)
	env.backend.mu.Unlock()

	assert.Zero(t, env.staging.Live())
	assert.Zero(t, env.s.PendingWrites())
}

func TestCommit_PathBecameDirectory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.s.Open(ctx, "x", ModeWrite)
	require.NoError(t, err)
	_, err = f.Write([]byte("content"))
	require.NoError(t, err)

	require.NoError(t, env.s.Mkdir(ctx, "x/y"))

	err = f.Close()
	assert.True(t, IsInvalidState(err), "got %v", err)

	rec, err := env.s.Stat(ctx, "x")
	require.NoError(t, err)
	assert.True(t, rec.IsDir(), "the directory must keep its type, got %q", rec.MimeType)
	assert.Equal(t, collect(t, env.s, "x"), []string{"y"})

	_, writes, _ := env.backend.calls()
	assert.Zero(t, writes)
	assert.Zero(t, env.staging.Live())
	assert.Zero(t, env.s.PendingWrites())
}

func TestCommit_FailureRestoresExistingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	writeFile(t, env.s, "f.txt", "original")
	before, err := env.s.Stat(ctx, "f.txt")
	require.NoError(t, err)

	env.backend.setFailWrites(true)
	err = env.s.WriteFile(ctx, "f.txt", stringsReader("replacement content"))
	assert.True(t, IsBackendFailure(err), "got %v", err)
	env.backend.setFailWrites(false)

	after, err := env.s.Stat(ctx, "f.txt")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Size, after.Size)
	assert.Equal(t, before.MimeType, after.MimeType)
	assert.Equal(t, before.ETag, after.ETag)
	assert.True(t, before.MTime.Equal(after.MTime))

	assert.Equal(t, "original", readFile(t, env.s, "f.txt"))
}

func TestOpen_Append(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "log", "abc")

	f, err := env.s.Open(ctx, "log", ModeAppend)
	require.NoError(t, err)

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = f.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, "abcdef", readFile(t, env.s, "log"))
}

func TestOpen_ReadWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "f", "abcdef")

	f, err := env.s.Open(ctx, "f", ModeReadWrite)
	require.NoError(t, err)

	buf := make([]byte, 2)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf))

	_, err = f.Write([]byte("XY"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, "abXYef", readFile(t, env.s, "f"))
}

func TestOpen_WriteTruncates(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.s, "f", "long content")
	writeFile(t, env.s, "f", "short")

	assert.Equal(t, "short", readFile(t, env.s, "f"))
}

func TestOpen_CreateExclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	writeFile(t, env.s, "f", "x")

	_, err := env.s.Open(ctx, "f", ModeCreate)
	assert.True(t, IsConflict(err), "got %v", err)

	f, err := env.s.Open(ctx, "g", ModeCreate)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	size, err := env.s.Filesize(ctx, "g")
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestOpen_InvalidTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.s.Mkdir(ctx, "d"))
	writeFile(t, env.s, "file", "x")

	_, err := env.s.Open(ctx, "d", ModeWrite)
	assert.True(t, IsInvalidState(err), "directory: %v", err)

	_, err = env.s.Open(ctx, "d", ModeRead)
	assert.True(t, IsInvalidState(err), "directory: %v", err)

	_, err = env.s.Open(ctx, "missing/f", ModeWrite)
	assert.True(t, IsInvalidState(err), "missing parent: %v", err)

	_, err = env.s.Open(ctx, "file/f", ModeWrite)
	assert.True(t, IsInvalidState(err), "file parent: %v", err)

	_, err = env.s.Open(ctx, "missing", ModeRead)
	assert.True(t, IsNotFound(err), "missing: %v", err)

	assert.Zero(t, env.s.PendingWrites())
	assert.Zero(t, env.staging.Live())
}

func TestReadHandle_Seek(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.s, "f", "0123456789")

	f, err := env.s.Open(context.Background(), "f", ModeRead)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	pos, err := f.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)

	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(rest))
}

func TestReadHandle_RejectsWrites(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.s, "f", "x")

	f, err := env.s.Open(context.Background(), "f", ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "f", f.Name())

	_, err = f.Write([]byte("y"))
	assert.True(t, IsInvalidState(err), "got %v", err)

	require.NoError(t, f.Close())
	assert.True(t, IsClosed(f.Close()))
}

func TestCommit_MimeType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	require.NoError(t, env.s.WriteFile(ctx, "image", bytesReader(png)))
	writeFile(t, env.s, "page.html", "plain words")

	mimeType, err := env.s.MimeType(ctx, "image")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	mimeType, err = env.s.MimeType(ctx, "page.html")
	require.NoError(t, err)
	assert.Equal(t, "text/html", mimeType, "generic content defers to the extension")
}
