// Package tree implements the structural edits of a document's property
// tree. Every edit checks the document lock first, validates the request
// next and only then mutates, so a failed edit leaves the tree unchanged.
package tree

import (
	"fmt"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/lock"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/variant"
)

// Event operations.
const (
	OpChildAdded      = "child.added"
	OpChildDeleted    = "child.deleted"
	OpChildReordered  = "child.reordered"
	OpChildRenamed    = "child.renamed"
	OpVariantChanged  = "variant.changed"
	OpRequiredToggled = "required.toggled"
	OpAdditionalProps = "additional_properties.toggled"
	OpFieldUpdated    = "field.updated"
)

// Event describes one applied edit.
type Event struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Key   string `json:"key,omitempty"`
	Field string `json:"field,omitempty"`
}

// Observer receives an Event after every successful edit.
type Observer func(Event)

// Engine edits the trees of one document kind.
type Engine struct {
	kind     models.DocumentKind
	observer Observer
}

// New returns an engine for documents of the given kind. observer may be nil.
func New(kind models.DocumentKind, observer Observer) *Engine {
	return &Engine{kind: kind, observer: observer}
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// Position returns the variant-picker context of the node at path.
func (e *Engine) Position(path models.Path) variant.Position {
	pos := variant.Position{Kind: e.kind, Slot: variant.SlotProperty}
	switch {
	case path.IsRoot():
		pos.Slot = variant.SlotRoot
	case path.Last() == models.ItemsStep:
		pos.Slot = variant.SlotItems
	}
	return pos
}

func (e *Engine) resolve(doc *models.Document, path models.Path) (*models.PropertyNode, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: %s has no root", apperr.ErrInvalidDocument, doc.FileName)
	}
	return doc.Root.Lookup(path)
}

// container resolves the children map addressed by path. Arrays are
// followed into their items so an array of objects can be edited directly.
func (e *Engine) container(doc *models.Document, path models.Path) (*models.Properties, models.Path, error) {
	node, err := e.resolve(doc, path)
	if err != nil {
		return nil, nil, err
	}
	for node.Kind() == models.KindArray {
		node = node.Items()
		path = path.Items()
	}
	props := node.Properties()
	if props == nil {
		return nil, nil, fmt.Errorf("%w: %s (%s) has no properties", apperr.ErrInvalidOperation, path, node.Kind())
	}
	return props, path, nil
}

// AddChild appends a void property under a fresh property_N key, N being
// the smallest unused positive integer, and returns the key.
func (e *Engine) AddChild(doc *models.Document, parent models.Path) (string, error) {
	if err := lock.AssertMutable(doc); err != nil {
		return "", err
	}
	props, at, err := e.container(doc, parent)
	if err != nil {
		return "", err
	}
	key := nextKey(props)
	if props.Has(key) {
		return "", fmt.Errorf("%w: %s", apperr.ErrDuplicateKey, key)
	}
	props.Set(key, models.NewNode("", nil))
	e.emit(Event{Op: OpChildAdded, Path: at.String(), Key: key})
	return key, nil
}

func nextKey(props *models.Properties) string {
	for n := 1; ; n++ {
		key := fmt.Sprintf("property_%d", n)
		if !props.Has(key) {
			return key
		}
	}
}

// DeleteChild removes key; the remaining children keep their order.
func (e *Engine) DeleteChild(doc *models.Document, parent models.Path, key string) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	props, at, err := e.container(doc, parent)
	if err != nil {
		return err
	}
	if !props.Delete(key) {
		return fmt.Errorf("%w: property %s", apperr.ErrNotFound, at.Child(key))
	}
	e.emit(Event{Op: OpChildDeleted, Path: at.String(), Key: key})
	return nil
}

// Reorder moves the child at from to position to.
func (e *Engine) Reorder(doc *models.Document, parent models.Path, from, to int) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	props, at, err := e.container(doc, parent)
	if err != nil {
		return err
	}
	if from == to && from >= 0 && from < props.Len() {
		return nil
	}
	keys := props.Keys()
	if err := props.Move(from, to); err != nil {
		return err
	}
	e.emit(Event{Op: OpChildReordered, Path: at.String(), Key: keys[from]})
	return nil
}

// RenameChild changes a child's key in place.
func (e *Engine) RenameChild(doc *models.Document, parent models.Path, oldKey, newKey string) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	if err := models.ValidateName(newKey); err != nil {
		return err
	}
	props, at, err := e.container(doc, parent)
	if err != nil {
		return err
	}
	if err := props.Rename(oldKey, newKey); err != nil {
		return err
	}
	e.emit(Event{Op: OpChildRenamed, Path: at.String(), Key: newKey})
	return nil
}

// ChangeVariant switches the node at path to kind.
func (e *Engine) ChangeVariant(doc *models.Document, path models.Path, kind models.Kind) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	node, err := e.resolve(doc, path)
	if err != nil {
		return err
	}
	before := node.Kind()
	if err := variant.ChangeVariant(node, kind, e.Position(path)); err != nil {
		return err
	}
	if before != kind {
		e.emit(Event{Op: OpVariantChanged, Path: path.String(), Field: string(kind)})
	}
	return nil
}

// ToggleRequired flips the required flag of a named property.
func (e *Engine) ToggleRequired(doc *models.Document, path models.Path) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	if path.IsRoot() || path.Last() == models.ItemsStep {
		return fmt.Errorf("%w: required applies to named properties only", apperr.ErrInvalidOperation)
	}
	node, err := e.resolve(doc, path)
	if err != nil {
		return err
	}
	node.Required = !node.Required
	e.emit(Event{Op: OpRequiredToggled, Path: path.String()})
	return nil
}

// ToggleAdditionalProperties flips additionalProperties on a nested object.
func (e *Engine) ToggleAdditionalProperties(doc *models.Document, path models.Path) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("%w: additional properties cannot be toggled on the root", apperr.ErrInvalidOperation)
	}
	node, err := e.resolve(doc, path)
	if err != nil {
		return err
	}
	obj, ok := node.Variant.(*models.ObjectVariant)
	if !ok {
		return fmt.Errorf("%w: %s is %s, not object", apperr.ErrInvalidOperation, path, node.Kind())
	}
	obj.AdditionalProperties = !obj.AdditionalProperties
	e.emit(Event{Op: OpAdditionalProps, Path: path.String()})
	return nil
}

// SetDescription replaces the description of any node, the root included.
func (e *Engine) SetDescription(doc *models.Document, path models.Path, description string) error {
	return e.edit(doc, path, "description", func(n *models.PropertyNode) error {
		n.Description = description
		return nil
	})
}

// SetReference sets the target document of a ref node.
func (e *Engine) SetReference(doc *models.Document, path models.Path, target string) error {
	return e.edit(doc, path, "ref", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.RefVariant)
		if !ok {
			return kindMismatch(path, n, models.KindRef)
		}
		v.Target = target
		return nil
	})
}

// SetConstant sets the value of a constant node.
func (e *Engine) SetConstant(doc *models.Document, path models.Path, value string) error {
	return e.edit(doc, path, "value", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.ConstantVariant)
		if !ok {
			return kindMismatch(path, n, models.KindConstant)
		}
		v.Value = value
		return nil
	})
}

// SetEnumeration sets the enumeration of an enum or enum_array node.
func (e *Engine) SetEnumeration(doc *models.Document, path models.Path, name string) error {
	return e.edit(doc, path, "enums", func(n *models.PropertyNode) error {
		switch v := n.Variant.(type) {
		case *models.EnumVariant:
			v.Enumeration = name
		case *models.EnumArrayVariant:
			v.Enumeration = name
		default:
			return kindMismatch(path, n, models.KindEnum)
		}
		return nil
	})
}

// SetSchema replaces the schema fragment of a simple node.
func (e *Engine) SetSchema(doc *models.Document, path models.Path, schema any) error {
	return e.edit(doc, path, "schema", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.SimpleVariant)
		if !ok {
			return kindMismatch(path, n, models.KindSimple)
		}
		v.Schema = models.CloneValue(schema)
		return nil
	})
}

// SetJSONSchema replaces the JSON half of a complex node.
func (e *Engine) SetJSONSchema(doc *models.Document, path models.Path, schema any) error {
	return e.edit(doc, path, "json_type", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.ComplexVariant)
		if !ok {
			return kindMismatch(path, n, models.KindComplex)
		}
		v.JSONSchema = models.CloneValue(schema)
		return nil
	})
}

// SetBSONSchema replaces the BSON half of a complex node.
func (e *Engine) SetBSONSchema(doc *models.Document, path models.Path, schema any) error {
	return e.edit(doc, path, "bson_type", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.ComplexVariant)
		if !ok {
			return kindMismatch(path, n, models.KindComplex)
		}
		v.BSONSchema = models.CloneValue(schema)
		return nil
	})
}

// SetCustomType sets the type document a custom node reuses.
func (e *Engine) SetCustomType(doc *models.Document, path models.Path, typeName string) error {
	return e.edit(doc, path, "custom_type", func(n *models.PropertyNode) error {
		v, ok := n.Variant.(*models.CustomVariant)
		if !ok {
			return kindMismatch(path, n, models.KindCustom)
		}
		v.TypeName = typeName
		return nil
	})
}

func (e *Engine) edit(doc *models.Document, path models.Path, field string, fn func(*models.PropertyNode) error) error {
	if err := lock.AssertMutable(doc); err != nil {
		return err
	}
	node, err := e.resolve(doc, path)
	if err != nil {
		return err
	}
	if err := fn(node); err != nil {
		return err
	}
	e.emit(Event{Op: OpFieldUpdated, Path: path.String(), Field: field})
	return nil
}

func kindMismatch(path models.Path, n *models.PropertyNode, want models.Kind) error {
	return fmt.Errorf("%w: %s is %s, not %s", apperr.ErrInvalidOperation, path, n.Kind(), want)
}
