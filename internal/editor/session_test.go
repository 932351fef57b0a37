package editor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/tree"
	"github.com/starford/schemakit/internal/variant"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	root := variant.DefaultRoot(models.DocDictionaries)
	root.Properties().Set("name", models.NewNode("Name", &models.CustomVariant{TypeName: "word"}))
	doc := &models.Document{FileName: "person.0.1.0.0.yaml", Root: root}
	return New(models.Family{Kind: models.DocDictionaries, Name: "person"}, doc)
}

func TestApplyBatch(t *testing.T) {
	s := newSession(t)
	assert.NotEqual(t, uuid.Nil, s.ID)
	var seen []tree.Event
	s.Subscribe(func(ev tree.Event) { seen = append(seen, ev) })

	res, err := s.Apply([]Op{
		{Op: OpAddChild},
		{Op: OpChangeVariant, Path: "property_1", Type: "array"},
		{Op: OpChangeVariant, Path: "property_1.[]", Type: "object"},
		{Op: OpAddChild, Path: "property_1"},
		{Op: OpRename, Key: "property_1", NewKey: "addresses"},
		{Op: OpToggleRequired, Path: "addresses"},
		{Op: OpSetDescription, Path: "addresses", Value: "Postal addresses"},
		{Op: OpReorder, From: 1, To: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"property_1", "property_1"}, res.Added)
	assert.Len(t, res.Events, 8)
	assert.Equal(t, res.Events, seen)

	doc := s.Document()
	assert.Equal(t, []string{"addresses", "name"}, doc.Root.Properties().Keys())
	addresses, _ := doc.Root.Properties().Get("addresses")
	assert.True(t, addresses.Required)
	assert.Equal(t, "Postal addresses", addresses.Description)
	assert.Equal(t, []string{"property_1"}, addresses.Items().Properties().Keys())
}

func TestApplyIsAtomic(t *testing.T) {
	s := newSession(t)
	var seen []tree.Event
	s.Subscribe(func(ev tree.Event) { seen = append(seen, ev) })

	_, err := s.Apply([]Op{
		{Op: OpAddChild},
		{Op: OpDeleteChild, Key: "missing"},
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{"name"}, s.Document().Root.Properties().Keys())
	assert.Empty(t, seen)
}

func TestApplyValidatesOps(t *testing.T) {
	s := newSession(t)
	for _, op := range []Op{
		{Op: "explode"},
		{Op: OpRename, Key: "name"},
		{Op: OpChangeVariant, Path: "name"},
		{Op: OpChangeVariant, Path: "name", Type: "tuple"},
		{Op: OpReorder, From: -1},
		{Op: OpSetDescription, Value: 42},
	} {
		_, err := s.Apply([]Op{op})
		assert.ErrorIs(t, err, apperr.ErrInvalidOperation, "%+v", op)
	}
}

func TestApplyOnLockedDocument(t *testing.T) {
	root := variant.DefaultRoot(models.DocTypes)
	s := New(models.Family{Kind: models.DocTypes, Name: "word"}, &models.Document{FileName: "word.1.0.0.0.yaml", Locked: true, Root: root})
	_, err := s.Apply([]Op{{Op: OpChangeVariant, Type: "simple"}})
	assert.ErrorIs(t, err, apperr.ErrDocumentLocked)
}

func TestSessionOwnsACopy(t *testing.T) {
	root := variant.DefaultRoot(models.DocDictionaries)
	doc := &models.Document{FileName: "x.0.0.0.0.yaml", Root: root}
	s := New(models.Family{Kind: models.DocDictionaries, Name: "x"}, doc)
	_, err := s.Apply([]Op{{Op: OpAddChild}})
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Root.Properties().Len())
}

func TestVariants(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, []models.Kind{models.KindObject, models.KindArray, models.KindOneOf}, s.Variants(nil))
	assert.Contains(t, s.Variants(models.Path{"name"}), models.KindEnumArray)
	assert.NotContains(t, s.Variants(models.Path{"name"}), models.KindSimple)
}
