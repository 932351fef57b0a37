// Package testutil provides shared test helpers for setting up document
// stores and catalog databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/docstore"
	"github.com/starford/schemakit/internal/index"
	"github.com/starford/schemakit/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "schemakit-test-*.db")
	require.NoError(t, err)
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary document store indexed into db.
func TestStore(t *testing.T, db *index.DB) (string, *docstore.Store) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewFS(root)
	require.NoError(t, err)
	return root, docstore.New(files, db, nil)
}

// WriteFile stores a raw document file under root, creating its directory.
func WriteFile(t *testing.T, root, path, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}
