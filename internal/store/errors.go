package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no live record exists for the
// identity tuple. It is a sentinel, not a failure.
var ErrNotFound = errors.New("record not found")

// StorageError wraps an underlying I/O or transaction failure with enough
// context (operation, identity) for the caller to log and retry externally.
// Storage failures are never retried internally.
type StorageError struct {
	Op        string
	Category  string
	Key       string
	Namespace string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Category == "" && e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s@%s: %v", e.Op, e.Category, e.Key, e.Namespace, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, category, key, namespace string, err error) error {
	return &StorageError{Op: op, Category: category, Key: key, Namespace: namespace, Err: err}
}
