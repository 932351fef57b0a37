// Package apperr defines the error values shared across schemakit layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrDocumentLocked is returned when a mutation targets a locked document.
	ErrDocumentLocked = errors.New("document is locked")
	// ErrInvalidVariantTransition is returned when a node is switched to a
	// kind the variant registry does not offer at its position.
	ErrInvalidVariantTransition = errors.New("invalid variant transition")
	// ErrDuplicateKey signals a broken key-generation invariant. It must
	// never reach a caller in practice.
	ErrDuplicateKey = errors.New("duplicate property key")
	// ErrNotNewestVersion is returned when unlocking or writing a superseded version.
	ErrNotNewestVersion = errors.New("not the newest version")
	// ErrInvalidOperation covers structurally invalid edit requests.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidDocument is returned when stored or submitted content does
	// not have the shape of a schema document.
	ErrInvalidDocument = errors.New("invalid document")
)

// PersistenceError wraps a failure at the storage boundary.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it is nil.
func Persistence(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// IsPersistence reports whether err originated at the storage boundary.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
