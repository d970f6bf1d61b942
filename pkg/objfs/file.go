package objfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	stdpath "path"
	"sync/atomic"
	"time"

	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/staging"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/marmos91/objfs/pkg/store/object"
)

// Mode selects how Open treats a file.
type Mode string

const (
	// ModeRead streams the committed content from the backend
	ModeRead Mode = "r"

	// ModeWrite starts from empty content, creating the file if needed
	ModeWrite Mode = "w"

	// ModeAppend starts from the committed content; every write goes to the end
	ModeAppend Mode = "a"

	// ModeReadWrite starts from the committed content at offset 0
	ModeReadWrite Mode = "r+"

	// ModeCreate is ModeWrite failing with Conflict if the path exists
	ModeCreate Mode = "x"
)

// ParseMode maps an fopen style mode string ("rb", "w+", "ab", ...) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "rb", "rt":
		return ModeRead, nil
	case "w", "wb", "wt", "w+", "wb+", "w+b":
		return ModeWrite, nil
	case "a", "ab", "at", "a+", "ab+", "a+b":
		return ModeAppend, nil
	case "r+", "rb+", "r+b", "c", "cb", "c+", "cb+", "c+b":
		return ModeReadWrite, nil
	case "x", "xb", "x+", "xb+", "x+b":
		return ModeCreate, nil
	default:
		return "", fmt.Errorf("unsupported open mode %q", s)
	}
}

func (m Mode) writes() bool {
	return m != ModeRead
}

// File is an open file. Handles opened for reading reject Write; handles
// opened for writing commit their content to the backend on Close.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Name returns the normalized path the handle was opened for
	Name() string
}

// Open opens path in the given mode.
//
// Write modes never touch the backend: content is buffered in a staging file
// and committed when the handle is closed. The caller must close every
// handle exactly once.
func (s *Storage) Open(ctx context.Context, path string, mode Mode) (f File, err error) {
	defer s.observe("open", time.Now(), &err)

	path = Normalize(path)
	if !mode.writes() {
		return s.openRead(ctx, path)
	}
	return s.openWrite(ctx, path, mode)
}

func (s *Storage) openRead(ctx context.Context, path string) (File, error) {
	rec, err := s.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec.IsDir() {
		return nil, newError(ErrInvalidState, "open", path, errIsDirectory)
	}

	rc, err := s.backend.ReadObject(ctx, s.urns.urn(rec.ID))
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return nil, newError(ErrNotFound, "open", path, err)
		}
		return nil, newError(ErrBackendFailure, "open", path, err)
	}

	return &readHandle{path: path, rc: rc}, nil
}

var errIsDirectory = errors.New("is a directory")

func (s *Storage) openWrite(ctx context.Context, path string, mode Mode) (File, error) {
	if path == "" {
		return nil, newError(ErrInvalidState, "open", path, errIsDirectory)
	}

	rec, found, err := s.lookup(ctx, path)
	if err != nil {
		return nil, err
	}
	if found && rec.IsDir() {
		return nil, newError(ErrInvalidState, "open", path, errIsDirectory)
	}
	if found && mode == ModeCreate {
		return nil, newError(ErrConflict, "open", path, nil)
	}

	parent, pfound, err := s.lookup(ctx, index.Parent(path))
	if err != nil {
		return nil, err
	}
	if !pfound {
		return nil, newError(ErrInvalidState, "open", path, index.ErrParentNotFound)
	}
	if !parent.IsDir() {
		return nil, newError(ErrInvalidState, "open", path, index.ErrNotDirectory)
	}

	s.cache.evict(path)

	file, err := s.staging.Allocate(stdpath.Ext(path))
	if err != nil {
		return nil, newError(ErrBackendFailure, "open", path, err)
	}

	if found && (mode == ModeAppend || mode == ModeReadWrite) {
		if err := s.prepopulate(ctx, rec, file); err != nil {
			_ = s.staging.Release(file)
			return nil, err
		}
	}

	s.register(file.Name(), path)
	logger.Debug("objfs: staged %q in %s (mode %s)", path, file.Name(), mode)

	return &writeHandle{
		s:      s,
		ctx:    ctx,
		path:   path,
		file:   file,
		append: mode == ModeAppend,
	}, nil
}

// prepopulate copies the committed content of rec into file and rewinds it.
// A record without an object starts empty.
func (s *Storage) prepopulate(ctx context.Context, rec *index.Record, file staging.File) error {
	urn := s.urns.urn(rec.ID)

	rc, err := s.backend.ReadObject(ctx, urn)
	if errors.Is(err, object.ErrObjectNotFound) {
		logger.Warn("objfs: object %s of %q is missing, staging from empty content", urn, rec.Path)
		return nil
	}
	if err != nil {
		return newError(ErrBackendFailure, "open", rec.Path, err)
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(file, rc); err != nil {
		return newError(ErrBackendFailure, "open", rec.Path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return newError(ErrBackendFailure, "open", rec.Path, err)
	}
	return nil
}

func (s *Storage) register(stagingName, path string) {
	s.pendingMu.Lock()
	s.pending[stagingName] = path
	n := len(s.pending)
	s.pendingMu.Unlock()

	s.metrics.SetPendingWrites(n)
}

// unregister consumes the registration of a staging file. It reports false
// if the file was not registered.
func (s *Storage) unregister(stagingName string) (string, bool) {
	s.pendingMu.Lock()
	path, ok := s.pending[stagingName]
	delete(s.pending, stagingName)
	n := len(s.pending)
	s.pendingMu.Unlock()

	s.metrics.SetPendingWrites(n)
	return path, ok
}

// ============================================================================
// Handles
// ============================================================================

var errReadOnly = errors.New("handle is open for reading only")

type readHandle struct {
	path   string
	rc     io.ReadCloser
	closed atomic.Bool
}

func (h *readHandle) Name() string { return h.path }

func (h *readHandle) Read(p []byte) (int, error) {
	return h.rc.Read(p)
}

func (h *readHandle) Write([]byte) (int, error) {
	return 0, newError(ErrInvalidState, "write", h.path, errReadOnly)
}

// Seek works when the backend stream is seekable (the filesystem and memory
// backends return seekable streams); remote streams only read forward.
func (h *readHandle) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := h.rc.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return 0, newError(ErrInvalidState, "seek", h.path, errors.ErrUnsupported)
}

func (h *readHandle) Close() error {
	if h.closed.Swap(true) {
		return newError(ErrClosed, "close", h.path, nil)
	}
	return h.rc.Close()
}

type writeHandle struct {
	s      *Storage
	ctx    context.Context
	path   string
	file   staging.File
	append bool
	closed atomic.Bool
}

func (h *writeHandle) Name() string { return h.path }

func (h *writeHandle) Read(p []byte) (int, error) {
	return h.file.Read(p)
}

func (h *writeHandle) Write(p []byte) (int, error) {
	if h.append {
		if _, err := h.file.Seek(0, io.SeekEnd); err != nil {
			return 0, err
		}
	}
	return h.file.Write(p)
}

func (h *writeHandle) Seek(offset int64, whence int) (int64, error) {
	return h.file.Seek(offset, whence)
}

// Close commits the staged content. Closing twice returns an ErrClosed error.
func (h *writeHandle) Close() error {
	if h.closed.Swap(true) {
		return newError(ErrClosed, "close", h.path, nil)
	}
	return h.s.commit(h.ctx, h.file)
}

// ============================================================================
// Whole-file helpers
// ============================================================================

// ReadFile returns the whole content of a file.
func (s *Storage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	f, err := s.Open(ctx, path, ModeRead)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, newError(ErrBackendFailure, "read", f.Name(), err)
	}
	return buf.Bytes(), nil
}

// WriteFile replaces the content of a file with r, creating it if needed.
func (s *Storage) WriteFile(ctx context.Context, path string, r io.Reader) error {
	f, err := s.Open(ctx, path, ModeWrite)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		// Close still commits; an aborted copy must not replace the content
		_ = f.(*writeHandle).abort()
		return newError(ErrBackendFailure, "write", f.Name(), err)
	}
	return f.Close()
}
