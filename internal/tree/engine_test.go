package tree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/variant"
)

func newDoc(keys ...string) *models.Document {
	root := variant.DefaultRoot(models.DocDictionaries)
	for _, k := range keys {
		root.Properties().Set(k, models.NewNode(k, nil))
	}
	return &models.Document{FileName: "sample.0.1.0.0.yaml", Root: root}
}

func keysAt(t *testing.T, doc *models.Document, path string) []string {
	t.Helper()
	p, err := models.ParsePath(path)
	require.NoError(t, err)
	n, err := doc.Root.Lookup(p)
	require.NoError(t, err)
	return n.Properties().Keys()
}

func TestAddChildGeneratesSmallestUnusedKey(t *testing.T) {
	doc := newDoc("property_1", "property_3")
	var events []Event
	e := New(models.DocDictionaries, func(ev Event) { events = append(events, ev) })

	key, err := e.AddChild(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "property_2", key)

	key, err = e.AddChild(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "property_4", key)

	assert.Equal(t, []string{"property_1", "property_3", "property_2", "property_4"}, keysAt(t, doc, ""))
	added, _ := doc.Root.Properties().Get("property_4")
	assert.Equal(t, models.KindVoid, added.Kind())
	require.Len(t, events, 2)
	assert.Equal(t, Event{Op: OpChildAdded, Path: "<root>", Key: "property_2"}, events[0])
}

func TestAddChildIntoArrayOfObjects(t *testing.T) {
	doc := newDoc()
	e := New(models.DocDictionaries, nil)
	key, err := e.AddChild(doc, nil)
	require.NoError(t, err)
	require.NoError(t, e.ChangeVariant(doc, models.Path{key}, models.KindArray))
	require.NoError(t, e.ChangeVariant(doc, models.Path{key, models.ItemsStep}, models.KindObject))

	child, err := e.AddChild(doc, models.Path{key})
	require.NoError(t, err)
	assert.Equal(t, []string{child}, keysAt(t, doc, key+".[]"))
}

func TestAddChildRejectsLeafParent(t *testing.T) {
	doc := newDoc("leaf")
	_, err := New(models.DocDictionaries, nil).AddChild(doc, models.Path{"leaf"})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestReorderThenDeleteTracksIdentity(t *testing.T) {
	doc := newDoc("A", "B", "C")
	e := New(models.DocDictionaries, nil)

	require.NoError(t, e.Reorder(doc, nil, 1, 0))
	assert.Equal(t, []string{"B", "A", "C"}, keysAt(t, doc, ""))

	require.NoError(t, e.DeleteChild(doc, nil, "A"))
	assert.Equal(t, []string{"B", "C"}, keysAt(t, doc, ""))
}

func TestReorderInverseRestoresOrder(t *testing.T) {
	for _, pair := range [][2]int{{0, 3}, {3, 0}, {1, 2}, {2, 2}} {
		doc := newDoc("a", "b", "c", "d")
		e := New(models.DocDictionaries, nil)
		require.NoError(t, e.Reorder(doc, nil, pair[0], pair[1]))
		require.NoError(t, e.Reorder(doc, nil, pair[1], pair[0]))
		assert.Equal(t, []string{"a", "b", "c", "d"}, keysAt(t, doc, ""), "pair %v", pair)
	}
}

func TestReorderOutOfRange(t *testing.T) {
	doc := newDoc("a")
	err := New(models.DocDictionaries, nil).Reorder(doc, nil, 0, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestDeleteLastChildLeavesEmptyMap(t *testing.T) {
	doc := newDoc("only")
	e := New(models.DocDictionaries, nil)
	require.NoError(t, e.DeleteChild(doc, nil, "only"))
	require.NotNil(t, doc.Root.Properties())
	assert.Equal(t, 0, doc.Root.Properties().Len())

	assert.ErrorIs(t, e.DeleteChild(doc, nil, "only"), apperr.ErrNotFound)
}

func TestLockedDocumentRejectsEveryEdit(t *testing.T) {
	doc := newDoc("a", "b")
	doc.Root.Properties().Set("ref", models.NewNode("", &models.RefVariant{}))
	doc.Locked = true
	var events []Event
	e := New(models.DocDictionaries, func(ev Event) { events = append(events, ev) })
	before, err := yaml.Marshal(doc.Root)
	require.NoError(t, err)

	_, err = e.AddChild(doc, nil)
	assert.ErrorIs(t, err, apperr.ErrDocumentLocked)
	for _, err := range []error{
		e.DeleteChild(doc, nil, "a"),
		e.Reorder(doc, nil, 0, 1),
		e.RenameChild(doc, nil, "a", "z"),
		e.ChangeVariant(doc, models.Path{"a"}, models.KindObject),
		e.ToggleRequired(doc, models.Path{"a"}),
		e.ToggleAdditionalProperties(doc, models.Path{"a"}),
		e.SetDescription(doc, nil, "x"),
		e.SetReference(doc, models.Path{"ref"}, "other"),
	} {
		assert.ErrorIs(t, err, apperr.ErrDocumentLocked)
	}
	assert.Empty(t, events)
	after, err := yaml.Marshal(doc.Root)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestToggleFlags(t *testing.T) {
	doc := newDoc("a")
	e := New(models.DocDictionaries, nil)

	require.NoError(t, e.ToggleRequired(doc, models.Path{"a"}))
	a, _ := doc.Root.Properties().Get("a")
	assert.True(t, a.Required)

	assert.ErrorIs(t, e.ToggleRequired(doc, nil), apperr.ErrInvalidOperation)
	assert.ErrorIs(t, e.ToggleAdditionalProperties(doc, nil), apperr.ErrInvalidOperation)
	assert.ErrorIs(t, e.ToggleAdditionalProperties(doc, models.Path{"a"}), apperr.ErrInvalidOperation)

	require.NoError(t, e.ChangeVariant(doc, models.Path{"a"}, models.KindObject))
	require.NoError(t, e.ToggleAdditionalProperties(doc, models.Path{"a"}))
	assert.True(t, a.Variant.(*models.ObjectVariant).AdditionalProperties)
}

func TestChangeVariantUsesPosition(t *testing.T) {
	doc := newDoc("a")
	e := New(models.DocDictionaries, nil)

	assert.ErrorIs(t, e.ChangeVariant(doc, nil, models.KindVoid), apperr.ErrInvalidVariantTransition)
	assert.ErrorIs(t, e.ChangeVariant(doc, models.Path{"a"}, models.KindSimple), apperr.ErrInvalidVariantTransition)

	require.NoError(t, e.ChangeVariant(doc, nil, models.KindOneOf))
	assert.Equal(t, 0, doc.Root.Properties().Len(), "one_of starts empty")
}

func TestPayloadSetters(t *testing.T) {
	doc := newDoc("r", "c")
	e := New(models.DocTypes, nil)
	require.NoError(t, e.ChangeVariant(doc, models.Path{"r"}, models.KindRef))
	require.NoError(t, e.SetReference(doc, models.Path{"r"}, "address"))
	require.NoError(t, e.ChangeVariant(doc, models.Path{"c"}, models.KindComplex))
	require.NoError(t, e.SetBSONSchema(doc, models.Path{"c"}, map[string]any{"bsonType": "int"}))

	r, _ := doc.Root.Properties().Get("r")
	assert.Equal(t, "address", r.Variant.(*models.RefVariant).Target)
	c, _ := doc.Root.Properties().Get("c")
	assert.Equal(t, map[string]any{"bsonType": "int"}, c.Variant.(*models.ComplexVariant).BSONSchema)

	assert.ErrorIs(t, e.SetConstant(doc, models.Path{"r"}, "x"), apperr.ErrInvalidOperation)
}

func TestRenameChild(t *testing.T) {
	doc := newDoc("a", "b")
	e := New(models.DocDictionaries, nil)
	require.NoError(t, e.RenameChild(doc, nil, "a", "alpha"))
	assert.Equal(t, []string{"alpha", "b"}, keysAt(t, doc, ""))
	assert.ErrorIs(t, e.RenameChild(doc, nil, "alpha", "b"), apperr.ErrAlreadyExists)
	assert.ErrorIs(t, e.RenameChild(doc, nil, "alpha", "x.y"), apperr.ErrInvalidOperation)
}

func TestRandomEditSequenceKeepsKeySet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	doc := newDoc("a", "b", "c")
	e := New(models.DocDictionaries, nil)
	want := map[string]bool{"a": true, "b": true, "c": true}

	for range 500 {
		props := doc.Root.Properties()
		switch rng.Intn(3) {
		case 0:
			key, err := e.AddChild(doc, nil)
			require.NoError(t, err)
			require.False(t, want[key])
			want[key] = true
		case 1:
			if props.Len() == 0 {
				continue
			}
			key := props.Keys()[rng.Intn(props.Len())]
			require.NoError(t, e.DeleteChild(doc, nil, key))
			delete(want, key)
		case 2:
			if props.Len() == 0 {
				continue
			}
			require.NoError(t, e.Reorder(doc, nil, rng.Intn(props.Len()), rng.Intn(props.Len())))
		}
	}

	got := keysAt(t, doc, "")
	seen := map[string]bool{}
	for _, k := range got {
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	var wantKeys []string
	for k := range want {
		wantKeys = append(wantKeys, k)
	}
	sort.Strings(wantKeys)
	sort.Strings(got)
	assert.Equal(t, wantKeys, got)
}
