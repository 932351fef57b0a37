package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/storage"
)

const watchedDoc = "root:\n  description: Watched\n  type: object\n"

// watcherTestEnv sets up a store dir with a dictionaries folder, storage, and DB.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dictionaries"), 0o755))
	store, err := storage.NewFS(root)
	require.NoError(t, err)
	dbFile, err := os.CreateTemp("", "schemakit-watcher-test-*.db")
	require.NoError(t, err)
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return root, store, db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "dictionaries", "new.0.1.0.0.yaml"), []byte(watchedDoc), 0o644)

	assert.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("dictionaries/new.0.1.0.0.yaml")
		return cs != ""
	}, 5*time.Second, 50*time.Millisecond, "new file not indexed by watcher")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:dictionaries/new.0.1.0.0.yaml" {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond, "expected created callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	typesDir := filepath.Join(root, "types")
	_ = os.MkdirAll(typesDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(typesDir, "word.0.0.0.0.yaml"), []byte("root:\n  type: void\n"), 0o644)

	assert.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("types/word.0.0.0.0.yaml")
		return cs != ""
	}, 5*time.Second, 50*time.Millisecond, "file in new dir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "dictionaries", "del.0.0.0.0.yaml"), []byte(watchedDoc), 0o644)
	require.NoError(t, Sync(db, store, logger))

	cs, _ := db.GetChecksum("dictionaries/del.0.0.0.0.yaml")
	require.NotEmpty(t, cs, "precondition: file should be indexed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "dictionaries", "del.0.0.0.0.yaml"))

	assert.Eventually(t, func() bool {
		cs, _ := db.GetChecksum("dictionaries/del.0.0.0.0.yaml")
		return cs == ""
	}, 5*time.Second, 50*time.Millisecond, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "dictionaries", "old.0.0.0.0.yaml"), []byte(watchedDoc), 0o644)
	require.NoError(t, Sync(db, store, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(
		filepath.Join(root, "dictionaries", "old.0.0.0.0.yaml"),
		filepath.Join(root, "dictionaries", "renamed.0.0.0.0.yaml"))

	assert.Eventually(t, func() bool {
		oldCS, _ := db.GetChecksum("dictionaries/old.0.0.0.0.yaml")
		newCS, _ := db.GetChecksum("dictionaries/renamed.0.0.0.0.yaml")
		return oldCS == "" && newCS != ""
	}, 5*time.Second, 50*time.Millisecond, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestSyncRemovesStaleAndSkipsUnchanged(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "dictionaries", "keep.0.0.0.0.yaml"), []byte(watchedDoc), 0o644)
	_ = os.WriteFile(filepath.Join(root, "dictionaries", "gone.0.0.0.0.yaml"), []byte(watchedDoc), 0o644)
	_ = os.WriteFile(filepath.Join(root, "dictionaries", "noversion.yaml"), []byte(watchedDoc), 0o644)
	require.NoError(t, Sync(db, store, logger))
	cs, _ := db.GetChecksum("dictionaries/noversion.yaml")
	assert.Empty(t, cs, "file without a version should not be indexed")

	_ = os.Remove(filepath.Join(root, "dictionaries", "gone.0.0.0.0.yaml"))
	require.NoError(t, Sync(db, store, logger))
	all, _ := db.AllChecksums()
	require.Len(t, all, 1)
	assert.Contains(t, all, "dictionaries/keep.0.0.0.0.yaml")
}

func TestDocumentPath(t *testing.T) {
	root := filepath.FromSlash("/srv/documents")
	tests := []struct {
		abs  string
		want string
		ok   bool
	}{
		{"/srv/documents/types/word.0.1.0.0.yaml", "types/word.0.1.0.0.yaml", true},
		{"/srv/documents/enumerators/enumerations.2.yaml", "enumerators/enumerations.2.yaml", true},
		{"/srv/documents/types/.schemakit-tmp-123.yaml", "", false},
		{"/srv/documents/types/nested/word.0.1.0.0.yaml", "", false},
		{"/srv/documents/stray.0.1.0.0.yaml", "", false},
		{"/srv/documents/notes/a.0.1.0.0.yaml", "", false},
		{"/srv/documents/types/readme.md", "", false},
	}
	for _, tt := range tests {
		got, ok := documentPath(root, filepath.FromSlash(tt.abs))
		assert.Equal(t, tt.ok, ok, tt.abs)
		assert.Equal(t, tt.want, got, tt.abs)
	}
}
