package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

func TestAssertMutable(t *testing.T) {
	doc := &models.Document{}
	require.NoError(t, AssertMutable(doc))
	doc.Locked = true
	assert.ErrorIs(t, AssertMutable(doc), apperr.ErrDocumentLocked)

	enums := &models.EnumeratorDocument{Locked: true}
	assert.ErrorIs(t, AssertMutable(enums), apperr.ErrDocumentLocked)
}

func TestLockIsIdempotent(t *testing.T) {
	root := models.NewNode("r", nil)
	doc := &models.Document{Root: root}
	Lock(doc)
	Lock(doc)
	assert.True(t, doc.Locked)
	assert.Same(t, root, doc.Root)
}

func TestUnlock(t *testing.T) {
	doc := &models.Document{Locked: true}
	assert.ErrorIs(t, Unlock(doc, false), apperr.ErrNotNewestVersion)
	assert.True(t, doc.Locked)

	require.NoError(t, Unlock(doc, true))
	assert.False(t, doc.Locked)

	require.NoError(t, Unlock(doc, false), "unlocking an unlocked document is a no-op")
}
