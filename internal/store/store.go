package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"extasset/internal/assets"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute

	timeLayout = time.RFC3339Nano
)

// Store persists asset records in SQLite. Records have no expiry; they are
// only ever overwritten, never deleted.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database and bootstraps the schema.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Has reports whether a record exists for the asset name.
func (s *Store) Has(ctx context.Context, name string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM asset_records WHERE name = ? LIMIT 1", name).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the record for the asset name, or nil when none exists.
func (s *Store) Get(ctx context.Context, name string) (*assets.Record, error) {
	var (
		hash      string
		checkedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT content_hash, last_checked_at FROM asset_records WHERE name = ?", name,
	).Scan(&hash, &checkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	parsed, err := time.Parse(timeLayout, checkedAt)
	if err != nil {
		return nil, fmt.Errorf("parse last_checked_at for %q: %w", name, err)
	}
	return &assets.Record{ContentHash: hash, LastCheckedAt: parsed}, nil
}

// Put creates or overwrites the record for the asset name.
func (s *Store) Put(ctx context.Context, name string, record assets.Record) error {
	if name == "" {
		return fmt.Errorf("asset name is required")
	}
	if record.ContentHash == "" {
		return fmt.Errorf("content hash is required")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO asset_records (name, content_hash, last_checked_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  content_hash = excluded.content_hash,
  last_checked_at = excluded.last_checked_at
`, name, record.ContentHash, record.LastCheckedAt.UTC().Format(timeLayout))
	return err
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Tune connection pool for local usage.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}
