package object

import "errors"

var (
	// ErrObjectNotFound is returned when no object is stored under a URN.
	ErrObjectNotFound = errors.New("object not found")

	// ErrVersionNotFound is returned when a version identifier is unknown for a URN.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNotSupported is returned by operations a backend cannot provide.
	ErrNotSupported = errors.New("operation not supported by backend")
)
