package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ Backend = (*SqliteBackend)(nil)

// sqliteSchema creates the single table every SqliteBackend keeps its map in.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    k TEXT PRIMARY KEY,
    v TEXT NOT NULL
);`

// SqliteBackend is a persistent backend backed by a SQLite database file.
//
// It uses the pure-Go modernc.org/sqlite driver, so no cgo is involved.
// Values are stored as JSON text in a two-column table.
type SqliteBackend struct {
	id string
	db *sql.DB
}

// NewSqliteBackend opens (or creates) the database at path and ensures
// the schema exists. Pass a filesystem path; the backend owns the handle
// until Close.
func NewSqliteBackend(path string) (*SqliteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSqliteOpenFailed, err)
	}

	// The modernc driver opens lazily; fail fast and create the schema now.
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrSqliteOpenFailed, err)
	}

	return &SqliteBackend{
		id: uuid.NewString(),
		db: db,
	}, nil
}

// ID returns the identity of the backing map.
func (b *SqliteBackend) ID() string {
	return b.id
}

// Exists reports whether key is present.
func (b *SqliteBackend) Exists(key string) (bool, error) {
	var one int

	err := b.db.QueryRow(`SELECT 1 FROM kv WHERE k = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}

	return true, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (b *SqliteBackend) Get(key string) (any, error) {
	var raw string

	err := b.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}

	return decodeValue([]byte(raw))
}

// Set stores value under key as JSON text, overwriting any existing value.
func (b *SqliteBackend) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	_, err = b.db.Exec(
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSqliteWriteFailed, err)
	}

	return nil
}

// Erase removes key if present. It returns false when the key did not exist.
func (b *SqliteBackend) Erase(key string) (bool, error) {
	result, err := b.db.Exec(`DELETE FROM kv WHERE k = ?`, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSqliteWriteFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSqliteWriteFailed, err)
	}

	return affected > 0, nil
}

// Keys returns every key matching the glob pattern, sorted lexicographically.
//
// The pattern is applied in Go rather than via SQL GLOB so that the
// dialect stays exactly "*" and "?" with no character classes.
func (b *SqliteBackend) Keys(pattern string) ([]string, error) {
	rows, err := b.db.Query(`SELECT k FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}
	defer rows.Close()

	var matched []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
		}

		if MatchGlob(pattern, key) {
			matched = append(matched, key)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}

	sort.Strings(matched)

	return matched, nil
}

// Clean removes every key.
func (b *SqliteBackend) Clean() error {
	if _, err := b.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("%w: %w", ErrSqliteWriteFailed, err)
	}

	return nil
}

// BytesUsed returns the approximate footprint of the stored entries.
// Deep accounting charges each value its JSON text length.
func (b *SqliteBackend) BytesUsed(deep bool) (uint64, error) {
	rows, err := b.db.Query(`SELECT k, v FROM kv`)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}
	defer rows.Close()

	total := uint64(containerOverhead)

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
		}

		total += StringSize(key)
		if deep {
			total += uint64(len(value))
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSqliteReadFailed, err)
	}

	return total, nil
}

// Close releases the database handle.
func (b *SqliteBackend) Close() error {
	return b.db.Close()
}
