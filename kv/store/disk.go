package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"
)

var _ Backend = (*BoltBackend)(nil)

// boltBucket is the single bucket every BoltBackend keeps its map in.
var boltBucket = []byte("kv")

// BoltBackend is a persistent backend backed by a bbolt file.
//
// Values are stored as JSON text. The backend creates its bucket on open
// and keeps the database handle for its whole lifetime; Close releases it.
type BoltBackend struct {
	id   string
	path string
	db   *bbolt.DB
}

// NewBoltBackend opens (or creates) the bbolt file at path and ensures
// the bucket exists. The parent directory is created when missing.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBoltOpenFailed, err)
		}
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoltOpenFailed, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrBoltOpenFailed, err)
	}

	return &BoltBackend{
		id:   uuid.NewString(),
		path: path,
		db:   db,
	}, nil
}

// ID returns the identity of the backing map.
func (b *BoltBackend) ID() string {
	return b.id
}

// Path returns the database file path.
func (b *BoltBackend) Path() string {
	return b.path
}

// Exists reports whether key is present.
func (b *BoltBackend) Exists(key string) (bool, error) {
	var found bool

	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(boltBucket).Get([]byte(key)) != nil

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBoltReadFailed, err)
	}

	return found, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (b *BoltBackend) Get(key string) (any, error) {
	var raw []byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(boltBucket).Get([]byte(key)); data != nil {
			raw = append([]byte(nil), data...)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoltReadFailed, err)
	}

	if raw == nil {
		return nil, ErrKeyNotFound
	}

	return decodeValue(raw)
}

// Set stores value under key as JSON text, overwriting any existing value.
func (b *BoltBackend) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), encoded)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBoltWriteFailed, err)
	}

	return nil
}

// Erase removes key if present. It returns false when the key did not exist.
func (b *BoltBackend) Erase(key string) (bool, error) {
	var existed bool

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket.Get([]byte(key)) == nil {
			return nil
		}

		existed = true

		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBoltWriteFailed, err)
	}

	return existed, nil
}

// Keys returns every key matching the glob pattern, sorted lexicographically.
func (b *BoltBackend) Keys(pattern string) ([]string, error) {
	var matched []string

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, _ []byte) error {
			if MatchGlob(pattern, string(k)) {
				matched = append(matched, string(k))
			}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBoltReadFailed, err)
	}

	sort.Strings(matched)

	return matched, nil
}

// Clean removes every key by recreating the bucket.
func (b *BoltBackend) Clean() error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(boltBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucket(boltBucket)

		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBoltWriteFailed, err)
	}

	return nil
}

// BytesUsed returns the approximate footprint of the stored entries.
// Deep accounting charges each value its JSON text length.
func (b *BoltBackend) BytesUsed(deep bool) (uint64, error) {
	total := uint64(containerOverhead)

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			total += StringSize(string(k))
			if deep {
				total += uint64(len(v))
			}

			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBoltReadFailed, err)
	}

	return total, nil
}

// Close releases the database handle.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

// encodeValue marshals a JSON value for persistent storage.
func encodeValue(value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValueEncodeFailed, err)
	}

	return encoded, nil
}

// decodeValue unmarshals stored JSON text back into a decoded value.
func decodeValue(raw []byte) (any, error) {
	var value any

	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValueDecodeFailed, err)
	}

	return value, nil
}
