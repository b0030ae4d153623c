package session

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by a Backend when no record exists for an id.
var ErrRecordNotFound = errors.New("record not found")

// ErrNotFound is returned by Store.Load for an unknown session id.
var ErrNotFound = errors.New("session not found")

// CorruptDataError means a stored record could not be decoded into a valid
// manifest.
type CorruptDataError struct {
	ID  string
	Err error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("session %s is corrupt: %v", e.ID, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// StorageError wraps a backend failure.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
