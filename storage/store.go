// Package storage persists the once-per-key artifacts of the mix-decrypt
// chain. Every slot is written at most once: the first writer wins and
// every later writer reads back the winner.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound should be returned from Store.Get for missing records
var ErrNotFound = errors.New("Record Not Found")

// ErrVersionConflict is returned from Store.CompareAndSwap when the stored
// version is not the expected one.
var ErrVersionConflict = errors.New("Record Version Conflict")

// Kind separates the different artifacts stored per ballot box
type Kind string

const (
	KindInitialCiphertexts Kind = "initial-ciphertexts"
	KindMixResult          Kind = "mix-result"
)

// Key addresses one storage slot. NodeID is 0 for artifacts that are
// not per node.
type Key struct {
	Kind            Kind
	ElectionEventID string
	BallotBoxID     string
	NodeID          int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.Kind, k.ElectionEventID, k.BallotBoxID, k.NodeID)
}

// Record is a stored artifact with its version. A record that exists has
// version >= 1.
type Record struct {
	Key     Key
	Version int
	Data    []byte
}

// Store is a versioned key value store.
type Store interface {
	// Get returns the record at key or ErrNotFound
	Get(ctx context.Context, key Key) (*Record, error)
	// CompareAndSwap writes data at key if the current version equals
	// expected (0 meaning absent), returning the new record, or fails
	// with ErrVersionConflict.
	CompareAndSwap(ctx context.Context, key Key, expected int, data []byte) (*Record, error)
	Close() error
}

// PutIfAbsent stores data at key unless something is already there. It
// returns the record that ends up stored and whether this call created it.
// Losing a concurrent first write is not an error: the winner is returned.
func PutIfAbsent(ctx context.Context, s Store, key Key, data []byte) (*Record, bool, error) {
	rec, err := s.CompareAndSwap(ctx, key, 0, data)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, ErrVersionConflict) {
		return nil, false, err
	}
	rec, err = s.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading winning record for %s: %w", key, err)
	}
	return rec, false, nil
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Open creates the store for the named backend, keeping its files in dir.
func Open(backend, dir string) (Store, error) {
	if backend == BackendMemory {
		return NewMemoryStore(), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create storage directory: %w", err)
	}
	switch backend {
	case BackendSQLite:
		return NewSQLiteStorage(filepath.Join(dir, "ccmix.sqlite"))
	case BackendBolt:
		return NewBoltStorage(filepath.Join(dir, "ccmix.bolt"))
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
