package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/index"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/storage"
	"github.com/starford/schemakit/internal/variant"
	"github.com/starford/schemakit/internal/version"
)

func newStore(t *testing.T) (*Store, string, *index.DB) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewFS(root)
	require.NoError(t, err)
	db, err := index.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(files, db, nil), root, db
}

func dict(name string) models.Family {
	return models.Family{Kind: models.DocDictionaries, Name: name}
}

func sampleDoc() *models.Document {
	root := variant.DefaultRoot(models.DocDictionaries)
	root.Description = "Customer"
	root.Properties().Set("zeta", models.NewNode("last letter", &models.CustomVariant{TypeName: "word"}))
	root.Properties().Set("alpha", models.NewNode("first letter", &models.RefVariant{Target: "address"}))
	return &models.Document{Root: root}
}

func TestPutEchoesStoredForm(t *testing.T) {
	s, root, db := newStore(t)
	ctx := context.Background()

	doc := sampleDoc()
	doc.FileName = "wrong.yaml"
	doc.Root.Required = true
	saved, err := s.Put(ctx, dict("customer"), "customer.0.1.0.0.yaml", doc)
	require.NoError(t, err)

	assert.Equal(t, "customer.0.1.0.0.yaml", saved.FileName)
	assert.Equal(t, models.ConfigVersion{Minor: 1}, saved.Version)
	assert.False(t, saved.Root.Required)
	assert.Equal(t, []string{"zeta", "alpha"}, saved.Root.Properties().Keys())
	assert.Equal(t, "wrong.yaml", doc.FileName, "caller's document is untouched")

	_, err = os.Stat(filepath.Join(root, "dictionaries", "customer.0.1.0.0.yaml"))
	require.NoError(t, err)

	hits, err := db.References("address")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "dictionaries/customer.0.1.0.0.yaml", hits[0].Source)
}

func TestGetMissing(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Get(context.Background(), dict("nope"), "nope.0.0.0.0.yaml")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.False(t, apperr.IsPersistence(err))

	err = s.Delete(context.Background(), dict("nope"), "nope.0.0.0.0.yaml")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFamilyMismatchRejected(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Put(context.Background(), dict("a"), "b.0.0.0.0.yaml", sampleDoc())
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	_, err = s.Get(context.Background(), dict("a"), "a.yaml")
	assert.ErrorIs(t, err, apperr.ErrInvalidDocument)
}

func TestListNumericOrderAndLockState(t *testing.T) {
	s, root, _ := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"s.0.10.0.0.yaml", "s.0.9.0.0.yaml", "s.0.9.0.10.yaml", "other.1.0.0.0.yaml"} {
		doc := sampleDoc()
		doc.Locked = name == "s.0.9.0.0.yaml"
		f, err := models.FamilyOf(models.DocDictionaries, name)
		require.NoError(t, err)
		_, err = s.Put(ctx, f, name, doc)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "dictionaries", "notes.yaml"), []byte("x"), 0o644))

	got, err := s.List(ctx, dict("s"))
	require.NoError(t, err)
	var names []string
	for _, l := range got {
		names = append(names, l.FileName)
	}
	assert.Equal(t, []string{"s.0.9.0.0.yaml", "s.0.9.0.10.yaml", "s.0.10.0.0.yaml"}, names)
	assert.True(t, got[0].Locked)
	assert.False(t, got[1].Locked)
	assert.NotEmpty(t, got[0].Checksum)

	all, err := s.ListKind(ctx, models.DocDictionaries)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "other", all[0].Name)

	empty, err := s.List(ctx, models.Family{Kind: models.DocTypes, Name: "s"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEnumeratorsRoundTrip(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()

	enums := models.NewEnumerations()
	values := models.NewEnumeration()
	values.Set("b", "Bee")
	values.Set("a", "Ay")
	enums.Set("letters", values)
	saved, err := s.PutEnumerators(ctx, models.EnumeratorFileName(2), &models.EnumeratorDocument{Enumerations: enums})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	got, err := s.GetEnumerators(ctx, "enumerations.2.yaml")
	require.NoError(t, err)
	order, ok := models.EnumerationValues(got.Enumerations, "letters")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, order)

	list, err := s.List(ctx, models.EnumeratorFamily)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].Version)
}

func TestVersionControllerOverStore(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	c := version.NewController(s, nil)

	first, err := c.CreateNewVersion(ctx, dict("order"), version.Bump{Minor: true})
	require.NoError(t, err)
	assert.Equal(t, "order.0.1.0.0.yaml", first.FileName)

	second, err := c.CreateNewVersion(ctx, dict("order"), version.Bump{Patch: true, Enumerators: true})
	require.NoError(t, err)
	assert.Equal(t, "order.0.1.1.1.yaml", second.FileName)

	old, err := s.Get(ctx, dict("order"), first.FileName)
	require.NoError(t, err)
	assert.True(t, old.Locked)

	err = c.Unlock(ctx, dict("order"), first.FileName)
	assert.True(t, errors.Is(err, apperr.ErrNotNewestVersion))
}

type failingFS struct{ storage.Provider }

func (failingFS) Write(string, []byte) error { return errors.New("disk full") }

func TestWriteFailureIsPersistenceError(t *testing.T) {
	files, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	s := New(failingFS{files}, nil, nil)

	_, err = s.Put(context.Background(), dict("a"), "a.0.0.0.0.yaml", sampleDoc())
	require.Error(t, err)
	assert.True(t, apperr.IsPersistence(err))
}
