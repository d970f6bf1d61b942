package objfs

import (
	"errors"
	"fmt"
)

// ErrorCode is the category of a StorageError.
//
// Callers branch on the category, never on the message. Absence and
// conflicts are routine outcomes of filesystem probing and are reported
// with their own codes rather than as failures.
type ErrorCode int

const (
	// ErrNotFound indicates the path or version does not exist
	ErrNotFound ErrorCode = iota + 1

	// ErrConflict indicates the target already exists where creation was requested
	ErrConflict

	// ErrInvalidState indicates a missing parent or a file/directory mismatch
	ErrInvalidState

	// ErrBackendFailure indicates the index or object store failed for a
	// reason other than not-found. Index changes made by the operation were
	// rolled back before returning.
	ErrBackendFailure

	// ErrClosed indicates a write handle was closed more than once
	ErrClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrConflict:
		return "already exists"
	case ErrInvalidState:
		return "invalid state"
	case ErrBackendFailure:
		return "backend failure"
	case ErrClosed:
		return "closed"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// StorageError is the error type returned by every Storage operation.
type StorageError struct {
	Code ErrorCode

	// Op is the operation that failed (e.g. "mkdir", "commit")
	Op string

	// Path is the normalized path the operation was applied to
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Op + " " + quote(e.Path) + ": " + e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func quote(path string) string {
	if path == "" {
		return "/"
	}
	return fmt.Sprintf("%q", path)
}

func newError(code ErrorCode, op, path string, cause error) *StorageError {
	return &StorageError{Code: code, Op: op, Path: path, Err: cause}
}

// CodeOf returns the code of the StorageError in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func IsNotFound(err error) bool       { return CodeOf(err) == ErrNotFound }
func IsConflict(err error) bool       { return CodeOf(err) == ErrConflict }
func IsInvalidState(err error) bool   { return CodeOf(err) == ErrInvalidState }
func IsBackendFailure(err error) bool { return CodeOf(err) == ErrBackendFailure }
func IsClosed(err error) bool         { return CodeOf(err) == ErrClosed }
