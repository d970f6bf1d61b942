package index

import "errors"

// Standard index errors. Implementations wrap them with path context:
//
//	return fmt.Errorf("get %q: %w", path, index.ErrNotFound)
var (
	// ErrNotFound indicates no record exists for the path or identifier.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a Move target is already taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrParentNotFound indicates the parent directory of a new record is absent.
	ErrParentNotFound = errors.New("parent record not found")

	// ErrNotDirectory indicates the parent of a new record is a file.
	ErrNotDirectory = errors.New("parent record is not a directory")

	// ErrInvalidMove indicates a directory was moved into its own subtree.
	ErrInvalidMove = errors.New("cannot move a record into its own subtree")

	// ErrClosed indicates the index has been closed.
	ErrClosed = errors.New("index closed")
)
