package kv

import "errors"

var (
	// ErrInvalidOperation is returned when an operation array is
	// malformed: unknown tag, missing members, or wrong member types.
	ErrInvalidOperation = errors.New("invalid operation array")
	// ErrDecryptFailed indicates an encrypted value could not be
	// decrypted or reparsed.
	ErrDecryptFailed = errors.New("decrypt failed")
)
