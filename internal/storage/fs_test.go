package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte("file_name: hello.0.1.0.0.yaml\n_locked: false\n")
	require.NoError(t, s.Write("dictionaries/hello.0.1.0.0.yaml", content))
	got, err := s.Read("dictionaries/hello.0.1.0.0.yaml")
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Write("types/nested/c.0.0.1.0.yaml", []byte("deep")))
	got, err := s.Read("types/nested/c.0.0.1.0.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.0.0.1.0.yaml", []byte("bye"))
	require.NoError(t, s.Delete("del.0.0.1.0.yaml"))
	_, err := s.Read("del.0.0.1.0.yaml")
	assert.Error(t, err, "expected error reading deleted file")
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("dictionaries/a.0.0.1.0.yaml", []byte("a"))
	_ = s.Write("types/b.0.0.1.0.yaml", []byte("b"))
	_ = s.Write("enumerators/enumerations.1.yaml", []byte("c"))
	_ = s.Write("types/nested/c.0.0.1.0.yaml", []byte("nested"))
	_ = s.Write("types/.hidden.0.0.1.0.yaml", []byte("hidden"))
	_ = s.Write("stray.0.0.1.0.yaml", []byte("outside the kind folders"))
	_ = s.Write("types/readme.txt", []byte("not yaml"))

	items, err := s.List("")
	require.NoError(t, err)
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"dictionaries/a.0.0.1.0.yaml", "types/b.0.0.1.0.yaml", "enumerators/enumerations.1.yaml"}, paths)
}

func TestListMissingDir(t *testing.T) {
	s := tempStore(t)
	items, err := s.List("enumerators")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListSlashPaths(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("types/word.0.0.1.0.yaml", []byte("w"))
	items, err := s.List("types")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "types/word.0.0.1.0.yaml", items[0].Path)
	assert.NotEmpty(t, items[0].Checksum, "checksum should be set")
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.yaml",
		"/etc/shadow",
	}
	for _, p := range cases {
		_, err := s.Read(p)
		assert.Error(t, err, "read %q", p)
		assert.Error(t, s.Write(p, []byte("x")), "write %q", p)
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempStore(t)
	_ = s.Write("atomic.0.0.1.0.yaml", []byte("original content"))

	// Overwrite with new content.
	require.NoError(t, s.Write("atomic.0.0.1.0.yaml", []byte("updated content")))
	got, _ := s.Read("atomic.0.0.1.0.yaml")
	assert.Equal(t, "updated content", string(got))

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".schemakit-tmp-*"))
	assert.Empty(t, matches, "leftover temp files")
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/schemakit-does-not-exist-" + t.Name())
	assert.Error(t, err, "expected error for non-existent dir")
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "schemakit-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	assert.Error(t, err, "expected error when root is a file")
}
