package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3" // Import go-sqlite3 library
)

// SQLiteStorage is backed by SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection serialises writers so concurrent first writes
	// resolve through the version check rather than "database is locked".
	db.SetMaxOpenConns(1)
	stmt, err := db.Prepare(`
		CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			election_event_id TEXT NOT NULL,
			ballot_box_id TEXT NOT NULL,
			node_id INTEGER NOT NULL,
			version INTEGER NOT NULL,  -- optimistic lock, 1 on first write
			data BLOB NOT NULL,
			PRIMARY KEY (kind, election_event_id, ballot_box_id, node_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	defer stmt.Close()
	if _, err = stmt.Exec(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key Key) (*Record, error) {
	stmt, err := s.db.PrepareContext(ctx, `
		SELECT version, data FROM records
		WHERE kind = ? AND election_event_id = ? AND ballot_box_id = ? AND node_id = ?
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	rec := &Record{Key: key}
	err = stmt.QueryRowContext(ctx, string(key.Kind), key.ElectionEventID, key.BallotBoxID, key.NodeID).
		Scan(&rec.Version, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStorage) CompareAndSwap(ctx context.Context, key Key, expected int, data []byte) (*Record, error) {
	var res sql.Result
	var err error
	if expected == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO records (kind, election_event_id, ballot_box_id, node_id, version, data)
			VALUES (?, ?, ?, ?, 1, ?)
		`, string(key.Kind), key.ElectionEventID, key.BallotBoxID, key.NodeID, data)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE records SET version = version + 1, data = ?
			WHERE kind = ? AND election_event_id = ? AND ballot_box_id = ? AND node_id = ? AND version = ?
		`, data, string(key.Kind), key.ElectionEventID, key.BallotBoxID, key.NodeID, expected)
	}
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}
	return &Record{Key: key, Version: expected + 1, Data: copyBytes(data)}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
