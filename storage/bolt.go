package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

// BoltStorage is backed by a bbolt file. Values are the 8 byte big-endian
// version followed by the data.
type BoltStorage struct {
	db *bbolt.DB
}

var _ Store = (*BoltStorage)(nil)

// NewBoltStorage opens (or creates) the bolt database at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStorage{db: db}, nil
}

func decodeValue(key Key, v []byte) (*Record, error) {
	if len(v) < 8 {
		return nil, fmt.Errorf("corrupt record at %s", key)
	}
	return &Record{
		Key:     key,
		Version: int(binary.BigEndian.Uint64(v[:8])),
		Data:    copyBytes(v[8:]),
	}, nil
}

func (s *BoltStorage) Get(ctx context.Context, key Key) (rec *Record, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(recordsBucket).Get([]byte(key.String()))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction, decodeValue copies it.
		rec, err = decodeValue(key, v)
		return err
	})
	return rec, err
}

func (s *BoltStorage) CompareAndSwap(ctx context.Context, key Key, expected int, data []byte) (rec *Record, err error) {
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		k := []byte(key.String())
		current := 0
		if v := b.Get(k); v != nil {
			existing, err := decodeValue(key, v)
			if err != nil {
				return err
			}
			current = existing.Version
		}
		if current != expected {
			return ErrVersionConflict
		}
		v := make([]byte, 8+len(data))
		binary.BigEndian.PutUint64(v[:8], uint64(current+1))
		copy(v[8:], data)
		if err := b.Put(k, v); err != nil {
			return err
		}
		rec = &Record{Key: key, Version: current + 1, Data: copyBytes(data)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
