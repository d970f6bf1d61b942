// Package versioned provides versioning on top of any object.Backend.
//
// It is the fallback used when a backend has no native versioning. Every
// saved version is a regular object in the wrapped backend:
//
//	<urn>.v<seq>     payload of version <seq>
//	<urn>.versions   JSON manifest listing the saved versions
//
// Sequence numbers start at 1 and are never reused for the same URN until
// its versions are purged.
package versioned

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/objfs/pkg/store/object"
	"golang.org/x/sync/errgroup"
)

const (
	manifestSuffix = ".versions"
	payloadInfix   = ".v"

	// purgeConcurrency bounds parallel deletes in Purge
	purgeConcurrency = 8
)

type manifest struct {
	Next     uint64           `json:"next"`
	Versions []object.Version `json:"versions"`
}

// Wrapper implements object.Versioner for a backend without native versioning.
//
// Manifest updates are serialized by a mutex, so a Wrapper must be the only
// writer of version objects in its backend.
type Wrapper struct {
	backend object.Backend
	mu      sync.Mutex
}

// Wrap returns a Versioner storing versions inside backend.
func Wrap(backend object.Backend) *Wrapper {
	return &Wrapper{backend: backend}
}

// ManifestKey returns the key of the manifest object for urn.
func ManifestKey(urn string) string {
	return urn + manifestSuffix
}

// PayloadKey returns the key of the payload object for one version of urn.
func PayloadKey(urn, versionID string) string {
	return urn + payloadInfix + versionID
}

func (w *Wrapper) SaveVersion(ctx context.Context, urn string) error {
	data, err := w.readAll(ctx, urn)
	if err != nil {
		return fmt.Errorf("save version of %s: %w", urn, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := w.loadManifest(ctx, urn)
	if err != nil {
		return err
	}

	if m.Next == 0 {
		m.Next = 1
	}
	version := object.Version{
		ID:    strconv.FormatUint(m.Next, 10),
		Size:  int64(len(data)),
		MTime: time.Now().UTC(),
	}

	if err := w.backend.WriteObject(ctx, PayloadKey(urn, version.ID), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("save version of %s: %w", urn, err)
	}

	m.Next++
	m.Versions = append(m.Versions, version)
	return w.storeManifest(ctx, urn, m)
}

func (w *Wrapper) GetVersions(ctx context.Context, urn string) ([]object.Version, error) {
	w.mu.Lock()
	m, err := w.loadManifest(ctx, urn)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make([]object.Version, 0, len(m.Versions))
	for i := len(m.Versions) - 1; i >= 0; i-- {
		result = append(result, m.Versions[i])
	}
	return result, nil
}

func (w *Wrapper) GetVersion(ctx context.Context, urn, versionID string) (*object.Version, error) {
	w.mu.Lock()
	m, err := w.loadManifest(ctx, urn)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, v := range m.Versions {
		if v.ID == versionID {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
}

func (w *Wrapper) GetContentOfVersion(ctx context.Context, urn, versionID string) (io.ReadCloser, error) {
	if _, err := w.GetVersion(ctx, urn, versionID); err != nil {
		return nil, err
	}

	rc, err := w.backend.ReadObject(ctx, PayloadKey(urn, versionID))
	if errors.Is(err, object.ErrObjectNotFound) {
		return nil, fmt.Errorf("version %s of %s: %w", versionID, urn, object.ErrVersionNotFound)
	}
	return rc, err
}

func (w *Wrapper) RestoreVersion(ctx context.Context, urn, versionID string) error {
	rc, err := w.GetContentOfVersion(ctx, urn, versionID)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("restore %s to version %s: %w", urn, versionID, err)
	}

	return w.backend.WriteObject(ctx, urn, bytes.NewReader(data), int64(len(data)))
}

// Purge removes every saved version of urn together with its manifest.
// Purging a URN without versions is a no-op.
func (w *Wrapper) Purge(ctx context.Context, urn string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := w.loadManifest(ctx, urn)
	if err != nil {
		return err
	}
	if len(m.Versions) == 0 && m.Next == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(purgeConcurrency)
	for _, v := range m.Versions {
		key := PayloadKey(urn, v.ID)
		g.Go(func() error {
			err := w.backend.DeleteObject(gctx, key)
			if err != nil && !errors.Is(err, object.ErrObjectNotFound) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("purge versions of %s: %w", urn, err)
	}

	err = w.backend.DeleteObject(ctx, ManifestKey(urn))
	if err != nil && !errors.Is(err, object.ErrObjectNotFound) {
		return fmt.Errorf("purge versions of %s: %w", urn, err)
	}
	return nil
}

func (w *Wrapper) readAll(ctx context.Context, key string) ([]byte, error) {
	rc, err := w.backend.ReadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// loadManifest returns an empty manifest if none was stored yet.
// Caller must hold mu.
func (w *Wrapper) loadManifest(ctx context.Context, urn string) (*manifest, error) {
	data, err := w.readAll(ctx, ManifestKey(urn))
	if errors.Is(err, object.ErrObjectNotFound) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load version manifest of %s: %w", urn, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode version manifest of %s: %w", urn, err)
	}
	return &m, nil
}

// Caller must hold mu.
func (w *Wrapper) storeManifest(ctx context.Context, urn string, m *manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode version manifest of %s: %w", urn, err)
	}

	if err := w.backend.WriteObject(ctx, ManifestKey(urn), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("store version manifest of %s: %w", urn, err)
	}
	return nil
}
