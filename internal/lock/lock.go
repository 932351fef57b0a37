// Package lock enforces the read-only state of locked documents.
//
// A document is either Unlocked or Locked. Locking is always permitted.
// Unlocking is permitted only for the newest version of a family; older
// versions stay locked forever and can only be superseded by creating a
// new version.
package lock

import (
	"fmt"

	"github.com/starford/schemakit/internal/apperr"
)

// Lockable is a document carrying a lock flag.
type Lockable interface {
	IsLocked() bool
	SetLocked(bool)
}

// AssertMutable fails with ErrDocumentLocked when doc is locked.
func AssertMutable(doc Lockable) error {
	if doc.IsLocked() {
		return apperr.ErrDocumentLocked
	}
	return nil
}

// Lock marks doc read-only. Locking a locked document is a no-op.
func Lock(doc Lockable) {
	doc.SetLocked(true)
}

// Unlock makes doc editable again. newest tells whether doc is the newest
// version of its family.
func Unlock(doc Lockable, newest bool) error {
	if !doc.IsLocked() {
		return nil
	}
	if !newest {
		return fmt.Errorf("%w: create a new version instead", apperr.ErrNotNewestVersion)
	}
	doc.SetLocked(false)
	return nil
}
