package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register driver
)

const schema = `CREATE TABLE IF NOT EXISTS blobs (
	storage_key TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// SQLite stores values in a single table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite store needs a path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(context.Background(), "SELECT value FROM blobs WHERE storage_key = ?", key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get blob: %w", err)
	}
	return v, nil
}

func (s *SQLite) Set(key, value string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO blobs (storage_key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(storage_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set blob: %w", err)
	}
	return nil
}

func (s *SQLite) Remove(key string) error {
	if _, err := s.db.ExecContext(context.Background(), "DELETE FROM blobs WHERE storage_key = ?", key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
