package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned by the translator adapter when the
	// service answered 429. The batch translator retries these with
	// backoff; any other oracle error fails the chunk immediately.
	ErrRateLimited = errors.New("rate limited")

	// ErrShapeMismatch means the service returned a different number of
	// translations than texts sent. The affected chunk is failed.
	ErrShapeMismatch = errors.New("translation count does not match request")

	// ErrTranslationNotFound is returned when marking a (key, locale)
	// manual before it has ever been translated.
	ErrTranslationNotFound = errors.New("translation not found")
)

// StorageError wraps a durable-state I/O failure. It is fatal to the
// operation that hit it (the whole run if the source-phrase commit fails,
// a single locale otherwise) but never silently swallowed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err; returns nil when err is nil so repo methods
// can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
