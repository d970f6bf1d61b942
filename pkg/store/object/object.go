// Package object defines the flat, key-addressed content store consumed by objfs.
//
// A Backend knows nothing about paths or directories. It stores opaque byte
// streams under URNs derived from index identifiers (for example "urn:oid:42").
//
// Versioning:
// A backend may additionally implement Versioner. Backends that can only
// sometimes offer versioning (for example an S3 bucket with versioning
// disabled) also implement SupportsVersioning so that callers can fall back
// to the generic implementation in package versioned.
package object

import (
	"context"
	"io"
	"time"
)

// Backend is the minimal object store contract.
type Backend interface {
	// StorageID returns a stable identifier of the underlying store,
	// for example the bucket name or the root directory.
	StorageID() string

	// ReadObject returns a stream over the object content.
	// Returns ErrObjectNotFound if no object is stored under urn.
	// The caller must close the returned reader.
	ReadObject(ctx context.Context, urn string) (io.ReadCloser, error)

	// WriteObject replaces the object stored under urn with the content of r.
	// size is the exact number of bytes r yields, or -1 if unknown.
	WriteObject(ctx context.Context, urn string, r io.Reader, size int64) error

	// DeleteObject removes the object stored under urn.
	// Returns ErrObjectNotFound if no object is stored under urn.
	DeleteObject(ctx context.Context, urn string) error
}

// Version describes one saved revision of an object.
type Version struct {
	// ID is the backend specific version identifier
	ID string `json:"id"`

	Size  int64     `json:"size"`
	MTime time.Time `json:"mtime"`
	ETag  string    `json:"etag,omitempty"`
}

// Versioner is the optional versioning capability of a backend.
//
// Versions are scoped to a single URN. GetVersions returns them newest first.
type Versioner interface {
	// SaveVersion snapshots the current content of urn as a new version.
	// Backends that version every write natively may treat this as a no-op.
	SaveVersion(ctx context.Context, urn string) error

	GetVersions(ctx context.Context, urn string) ([]Version, error)

	// GetVersion returns ErrVersionNotFound for an unknown versionID.
	GetVersion(ctx context.Context, urn, versionID string) (*Version, error)

	GetContentOfVersion(ctx context.Context, urn, versionID string) (io.ReadCloser, error)

	// RestoreVersion makes the content of versionID the current content of urn.
	RestoreVersion(ctx context.Context, urn, versionID string) error
}

// versioningProbe is implemented by backends whose versioning support
// depends on their configuration.
type versioningProbe interface {
	SupportsVersioning() bool
}

// AsVersioner returns the native versioning capability of b, if any.
func AsVersioner(b Backend) (Versioner, bool) {
	v, ok := b.(Versioner)
	if !ok {
		return nil, false
	}

	if probe, ok := b.(versioningProbe); ok && !probe.SupportsVersioning() {
		return nil, false
	}

	return v, true
}
