package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Dumps serializes the full contents of a backend as a JSON object whose
// members are the keys. Keys that disappear mid-iteration are skipped.
func Dumps(b Backend) (string, error) {
	keys, err := b.Keys("*")
	if err != nil {
		return "", err
	}

	object := make(map[string]any, len(keys))

	for _, key := range keys {
		value, err := b.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}

		if err != nil {
			return "", err
		}

		object[key] = value
	}

	encoded, err := json.Marshal(object)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValueEncodeFailed, err)
	}

	return string(encoded), nil
}

// Loads parses a JSON object and sets each member on the backend. It
// merges into the existing contents; it does not clean first.
//
// A non-object root fails with ErrInvalidFormat before any write happens.
func Loads(b Backend, s string) error {
	var object map[string]any

	if err := json.Unmarshal([]byte(s), &object); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	for key, value := range object {
		if err := b.Set(key, value); err != nil {
			return err
		}
	}

	return nil
}

// DumpFile writes Dumps output to path verbatim.
func DumpFile(b Backend, path string) error {
	dump, err := Dumps(b)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrDumpFileFailed, err)
	}

	return nil
}

// LoadFile reads path and merges its JSON object into the backend.
func LoadFile(b Backend, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFileFailed, err)
	}

	return Loads(b, string(text))
}
