package store

import "errors"

var (
	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("key must be a non-empty string")
	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrInvalidFormat is returned when loads is given text that is not a JSON object.
	ErrInvalidFormat = errors.New("not a JSON object")
	// ErrValueEncodeFailed indicates serializing a value to JSON failed.
	ErrValueEncodeFailed = errors.New("value encode failed")
	// ErrValueDecodeFailed indicates parsing a stored value failed.
	ErrValueDecodeFailed = errors.New("value decode failed")
	// ErrBoltOpenFailed indicates the bolt backend could not be opened.
	ErrBoltOpenFailed = errors.New("bolt open failed")
	// ErrBoltReadFailed indicates reading from the bolt backend failed.
	ErrBoltReadFailed = errors.New("bolt read failed")
	// ErrBoltWriteFailed indicates writing to the bolt backend failed.
	ErrBoltWriteFailed = errors.New("bolt write failed")
	// ErrSqliteOpenFailed indicates the sqlite backend could not be opened.
	ErrSqliteOpenFailed = errors.New("sqlite open failed")
	// ErrSqliteReadFailed indicates a sqlite query failed.
	ErrSqliteReadFailed = errors.New("sqlite read failed")
	// ErrSqliteWriteFailed indicates a sqlite mutation failed.
	ErrSqliteWriteFailed = errors.New("sqlite write failed")
	// ErrRedisCommandFailed indicates a redis command failed.
	ErrRedisCommandFailed = errors.New("redis command failed")
	// ErrDumpFileFailed indicates writing a dump file failed.
	ErrDumpFileFailed = errors.New("dump file write failed")
	// ErrLoadFileFailed indicates reading a dump file failed.
	ErrLoadFileFailed = errors.New("dump file read failed")
)
