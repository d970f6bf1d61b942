// Package badger implements a persistent metadata index backed by BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/objfs/internal/logger"
	"github.com/marmos91/objfs/pkg/store/index"
)

// BadgerIndex implements index.Index using BadgerDB for persistence.
//
// Key Features:
//   - Persistent storage with crash recovery (WAL-based)
//   - Identifier allocation through a badger.Sequence (never reused)
//   - ACID transactions for subtree moves and removals
//   - Ordered directory listings through prefix scans
//
// Thread Safety:
// Reads run in concurrent badger read transactions. Mutations are serialized
// by mu so that multi-key updates never race into badger.ErrConflict.
type BadgerIndex struct {
	db  *badger.DB
	seq *badger.Sequence

	// mu serializes mutating transactions
	mu sync.Mutex
}

// BadgerIndexConfig contains configuration for creating a BadgerDB index.
type BadgerIndexConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests, ephemeral deployments)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// BadgerOptions overrides every other option when set
	BadgerOptions *badger.Options
}

// NewBadgerIndex opens (or creates) a BadgerDB index.
func NewBadgerIndex(ctx context.Context, config BadgerIndexConfig) (*BadgerIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			if config.DBPath == "" {
				return nil, fmt.Errorf("badger db_path is required")
			}
			opts = badger.DefaultOptions(config.DBPath)
		}

		// Records are small JSON documents; compression is not worth it
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	seq, err := db.GetSequence([]byte(sequenceIDKey), sequenceLeases)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	logger.Debug("Badger index opened: path=%s in_memory=%v", config.DBPath, config.InMemory)

	return &BadgerIndex{db: db, seq: seq}, nil
}

// nextID allocates a fresh identifier. Zero is reserved as "no record".
func (b *BadgerIndex) nextID() (uint64, error) {
	for {
		id, err := b.seq.Next()
		if err != nil {
			return 0, fmt.Errorf("failed to allocate id: %w", err)
		}
		if id != 0 {
			return id, nil
		}
	}
}

// Get returns the record at path.
func (b *BadgerIndex) Get(ctx context.Context, path string) (*index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *index.Record
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getByPath(txn, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}

	return rec, nil
}

// Put creates or updates the record at path.
func (b *BadgerIndex) Put(ctx context.Context, path string, attrs index.Attributes) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var id uint64
	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getByPath(txn, path)
		if err == nil {
			attrs.Apply(rec)
			id = rec.ID
			return putRecord(txn, rec)
		}
		if !errors.Is(err, index.ErrNotFound) {
			return err
		}

		var parent *index.Record
		if path != "" {
			parent, err = getByPath(txn, index.Parent(path))
			if errors.Is(err, index.ErrNotFound) {
				return index.ErrParentNotFound
			}
			if err != nil {
				return err
			}
			if !parent.IsDir() {
				return index.ErrNotDirectory
			}
		}

		id, err = b.nextID()
		if err != nil {
			return err
		}

		rec = &index.Record{ID: id, Path: path, Name: index.Base(path)}
		attrs.Apply(rec)

		if err := putRecord(txn, rec); err != nil {
			return err
		}
		if err := txn.Set(keyPath(path), encodeID(id)); err != nil {
			return err
		}
		if parent != nil {
			return txn.Set(keyChild(parent.ID, rec.Name), encodeID(id))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("put %q: %w", path, err)
	}

	return id, nil
}

// Update changes the attributes of the record with the given identifier.
func (b *BadgerIndex) Update(ctx context.Context, id uint64, attrs index.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getByID(txn, id)
		if err != nil {
			return err
		}
		attrs.Apply(rec)
		return putRecord(txn, rec)
	})
	if err != nil {
		return fmt.Errorf("update id %d: %w", id, err)
	}

	return nil
}

// Remove deletes the record at path and its whole subtree.
func (b *BadgerIndex) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getByPath(txn, path)
		if err != nil {
			return err
		}

		subtree, err := collectSubtree(txn, rec)
		if err != nil {
			return err
		}

		for _, r := range subtree {
			if err := txn.Delete(keyRecord(r.ID)); err != nil {
				return err
			}
			if err := txn.Delete(keyPath(r.Path)); err != nil {
				return err
			}
			if r.ID == rec.ID {
				continue
			}
			parentID, err := idOfPath(txn, index.Parent(r.Path), subtree)
			if err != nil {
				return err
			}
			if err := txn.Delete(keyChild(parentID, r.Name)); err != nil {
				return err
			}
		}

		if path != "" {
			parent, err := getByPath(txn, index.Parent(path))
			if err != nil {
				return err
			}
			return txn.Delete(keyChild(parent.ID, rec.Name))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}

	return nil
}

// Move re-parents the subtree at src to dst. Children keys embed the parent
// identifier, so only path keys, stored paths and the moved root's own
// child entry change.
func (b *BadgerIndex) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if src != dst && (src == "" || index.IsWithin(dst, src)) {
		return fmt.Errorf("move %q to %q: %w", src, dst, index.ErrInvalidMove)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getByPath(txn, src)
		if err != nil {
			return err
		}
		if src == dst {
			return nil
		}

		if _, err := getByPath(txn, dst); err == nil {
			return index.ErrAlreadyExists
		} else if !errors.Is(err, index.ErrNotFound) {
			return err
		}

		newParent, err := getByPath(txn, index.Parent(dst))
		if errors.Is(err, index.ErrNotFound) {
			return index.ErrParentNotFound
		}
		if err != nil {
			return err
		}
		if !newParent.IsDir() {
			return index.ErrNotDirectory
		}

		oldParent, err := getByPath(txn, index.Parent(src))
		if err != nil {
			return err
		}

		subtree, err := collectSubtree(txn, rec)
		if err != nil {
			return err
		}

		for _, r := range subtree {
			if err := txn.Delete(keyPath(r.Path)); err != nil {
				return err
			}
			r.Path = index.Rebase(r.Path, src, dst)
			r.Name = index.Base(r.Path)
			if err := txn.Set(keyPath(r.Path), encodeID(r.ID)); err != nil {
				return err
			}
			if err := putRecord(txn, r); err != nil {
				return err
			}
		}

		if err := txn.Delete(keyChild(oldParent.ID, index.Base(src))); err != nil {
			return err
		}
		return txn.Set(keyChild(newParent.ID, index.Base(dst)), encodeID(rec.ID))
	})
	if err != nil {
		return fmt.Errorf("move %q to %q: %w", src, dst, err)
	}

	return nil
}

// GetFolderContents returns the immediate children of path ordered by name.
func (b *BadgerIndex) GetFolderContents(ctx context.Context, path string) ([]*index.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []*index.Record
	err := b.db.View(func(txn *badger.Txn) error {
		dir, err := getByPath(txn, path)
		if err != nil {
			return err
		}
		result, err = listChildren(txn, dir.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", path, err)
	}

	return result, nil
}

// Close releases the id sequence and closes the database.
func (b *BadgerIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.seq.Release(); err != nil {
		logger.Warn("Failed to release badger id sequence: %v", err)
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getByPath(txn *badger.Txn, path string) (*index.Record, error) {
	item, err := txn.Get(keyPath(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, index.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	return getByID(txn, decodeID(raw))
}

func getByID(txn *badger.Txn, id uint64) (*index.Record, error) {
	item, err := txn.Get(keyRecord(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, index.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec *index.Record
	err = item.Value(func(val []byte) error {
		var derr error
		rec, derr = decodeRecord(val)
		return derr
	})
	return rec, err
}

func putRecord(txn *badger.Txn, rec *index.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyRecord(rec.ID), data)
}

func listChildren(txn *badger.Txn, parentID uint64) ([]*index.Record, error) {
	prefix := keyChildPrefix(parentID)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uint64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		raw, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, decodeID(raw))
	}

	result := make([]*index.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := getByID(txn, id)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

// collectSubtree returns root and all its descendants, parents first.
func collectSubtree(txn *badger.Txn, root *index.Record) ([]*index.Record, error) {
	result := []*index.Record{root}
	for i := 0; i < len(result); i++ {
		if !result[i].IsDir() {
			continue
		}
		kids, err := listChildren(txn, result[i].ID)
		if err != nil {
			return nil, err
		}
		result = append(result, kids...)
	}
	return result, nil
}

// idOfPath resolves a path against an already loaded subtree before
// falling back to the database.
func idOfPath(txn *badger.Txn, path string, subtree []*index.Record) (uint64, error) {
	for _, r := range subtree {
		if r.Path == path {
			return r.ID, nil
		}
	}
	rec, err := getByPath(txn, path)
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}
