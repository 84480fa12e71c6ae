package kv

import (
	"encoding/json"
	"fmt"
)

// Encryptor encrypts and decrypts strings. The store only ever sees
// these two methods; key management and cipher choice live with the
// implementation (the reference system uses an RSA chunk encryptor).
type Encryptor interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// rjsonField is the single member of the wrapper object an encrypted
// value is stored as: {"rjson": <ciphertext>}.
const rjsonField = "rjson"

// wrapEncrypted serializes value and wraps the ciphertext in the rjson
// envelope written to the backend.
func wrapEncrypted(enc Encryptor, value any) (map[string]any, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	ciphertext, err := enc.EncryptString(string(plaintext))
	if err != nil {
		return nil, err
	}

	return map[string]any{rjsonField: ciphertext}, nil
}

// encryptedPayload reports whether a stored value carries the rjson
// envelope and returns the ciphertext when it does.
func encryptedPayload(value any) (string, bool) {
	object, ok := value.(map[string]any)
	if !ok {
		return "", false
	}

	ciphertext, ok := object[rjsonField].(string)

	return ciphertext, ok
}

// unwrapEncrypted decrypts an rjson envelope and reparses the plaintext.
func unwrapEncrypted(enc Encryptor, ciphertext string) (any, error) {
	plaintext, err := enc.DecryptString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}

	var value any
	if err := json.Unmarshal([]byte(plaintext), &value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}

	return value, nil
}
