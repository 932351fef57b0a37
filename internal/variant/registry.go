// Package variant holds the per-kind policy of the property tree: which
// kinds may be chosen at a given position and what a freshly switched node
// looks like.
package variant

import (
	"fmt"
	"slices"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

// Slot is where a node sits in its tree.
type Slot string

// Slots.
const (
	SlotRoot     Slot = "root"
	SlotProperty Slot = "property"
	SlotItems    Slot = "items"
)

// ParseSlot validates s as a slot.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotRoot, SlotProperty, SlotItems:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: unknown position %q", apperr.ErrInvalidOperation, s)
}

// Position is the context a variant picker is opened in.
type Position struct {
	Kind models.DocumentKind `json:"kind"`
	Slot Slot                `json:"slot"`
}

// DefaultItemsType is the custom type given to new array items.
const DefaultItemsType = "word"

// DefaultMaxLength bounds the string schemas of new complex nodes.
const DefaultMaxLength = 40

var (
	dictionaryRoot = []models.Kind{models.KindObject, models.KindArray, models.KindOneOf}
	typeRoot       = []models.Kind{
		models.KindVoid, models.KindObject, models.KindArray, models.KindOneOf,
		models.KindSimple, models.KindComplex,
	}
	dictionaryProperty = []models.Kind{
		models.KindVoid, models.KindObject, models.KindArray, models.KindOneOf,
		models.KindRef, models.KindConstant, models.KindEnum, models.KindEnumArray,
		models.KindCustom,
	}
	typeProperty = append(slices.Clone(dictionaryProperty), models.KindSimple, models.KindComplex)
	items        = []models.Kind{
		models.KindVoid, models.KindObject, models.KindArray, models.KindOneOf,
		models.KindRef, models.KindEnum, models.KindCustom,
	}
)

// LegalTargets returns the kinds a picker may offer at pos.
func LegalTargets(pos Position) []models.Kind {
	var out []models.Kind
	switch {
	case pos.Slot == SlotItems:
		out = items
	case pos.Kind == models.DocDictionaries && pos.Slot == SlotRoot:
		out = dictionaryRoot
	case pos.Kind == models.DocDictionaries:
		out = dictionaryProperty
	case pos.Kind == models.DocTypes && pos.Slot == SlotRoot:
		out = typeRoot
	case pos.Kind == models.DocTypes:
		out = typeProperty
	}
	return slices.Clone(out)
}

// Allowed reports whether kind may be chosen at pos.
func Allowed(pos Position, kind models.Kind) bool {
	return slices.Contains(LegalTargets(pos), kind)
}

// Default returns the initial payload of a node switched to kind.
func Default(kind models.Kind) models.Variant {
	switch kind {
	case models.KindObject:
		return &models.ObjectVariant{Properties: models.NewProperties()}
	case models.KindArray:
		return &models.ArrayVariant{Items: models.NewNode("Array item", &models.CustomVariant{TypeName: DefaultItemsType})}
	case models.KindOneOf:
		return &models.OneOfVariant{Properties: models.NewProperties()}
	case models.KindRef:
		return &models.RefVariant{}
	case models.KindConstant:
		return &models.ConstantVariant{}
	case models.KindEnum:
		return &models.EnumVariant{}
	case models.KindEnumArray:
		return &models.EnumArrayVariant{}
	case models.KindSimple:
		return &models.SimpleVariant{Schema: map[string]any{"type": "string"}}
	case models.KindComplex:
		return &models.ComplexVariant{
			JSONSchema: map[string]any{"type": "string", "maxLength": DefaultMaxLength},
			BSONSchema: map[string]any{"bsonType": "string", "maxLength": DefaultMaxLength},
		}
	case models.KindCustom:
		return &models.CustomVariant{TypeName: DefaultItemsType}
	}
	return &models.VoidVariant{}
}

// ChangeVariant switches node to kind. Illegal kinds are rejected before
// the node is touched; switching to the current kind keeps the payload.
func ChangeVariant(node *models.PropertyNode, kind models.Kind, pos Position) error {
	if !Allowed(pos, kind) {
		return fmt.Errorf("%w: %q is not offered for %s %s", apperr.ErrInvalidVariantTransition, kind, pos.Kind, pos.Slot)
	}
	if node.Kind() == kind && node.Variant != nil {
		return nil
	}
	node.Variant = Default(kind)
	return nil
}

// DefaultRoot returns the root of a brand new document of the given kind.
func DefaultRoot(kind models.DocumentKind) *models.PropertyNode {
	if kind == models.DocDictionaries {
		return models.NewNode("", Default(models.KindObject))
	}
	return models.NewNode("", Default(models.KindVoid))
}
