package models

import (
	"fmt"

	"github.com/starford/schemakit/internal/apperr"
)

// PropertyNode is one node of a schema property tree. Its name is the key
// under which its parent stores it; the root has no name.
type PropertyNode struct {
	Description string
	// Required is ignored on tree roots.
	Required bool
	Variant  Variant
}

// Variant is the kind-specific payload of a PropertyNode. The set of
// implementations is closed.
type Variant interface {
	Kind() Kind
	clone() Variant
}

// ObjectVariant holds named child properties.
type ObjectVariant struct {
	Properties           *Properties
	AdditionalProperties bool
}

// ArrayVariant holds the single items node of an array.
type ArrayVariant struct {
	Items *PropertyNode
}

// OneOfVariant holds alternative shapes keyed by name.
type OneOfVariant struct {
	Properties *Properties
}

// RefVariant points at another dictionary or type document.
type RefVariant struct {
	Target string
}

// ConstantVariant fixes the property to a literal value.
type ConstantVariant struct {
	Value string
}

// EnumVariant restricts the property to one enumeration's values.
type EnumVariant struct {
	Enumeration string
}

// EnumArrayVariant is an array of values from one enumeration.
type EnumArrayVariant struct {
	Enumeration string
}

// SimpleVariant carries a single JSON-Schema fragment.
type SimpleVariant struct {
	Schema any
}

// ComplexVariant carries parallel JSON and BSON schema fragments.
type ComplexVariant struct {
	JSONSchema any
	BSONSchema any
}

// CustomVariant reuses a type document by name.
type CustomVariant struct {
	TypeName string
}

// VoidVariant is the unset state.
type VoidVariant struct{}

func (*ObjectVariant) Kind() Kind    { return KindObject }
func (*ArrayVariant) Kind() Kind     { return KindArray }
func (*OneOfVariant) Kind() Kind     { return KindOneOf }
func (*RefVariant) Kind() Kind       { return KindRef }
func (*ConstantVariant) Kind() Kind  { return KindConstant }
func (*EnumVariant) Kind() Kind      { return KindEnum }
func (*EnumArrayVariant) Kind() Kind { return KindEnumArray }
func (*SimpleVariant) Kind() Kind    { return KindSimple }
func (*ComplexVariant) Kind() Kind   { return KindComplex }
func (*CustomVariant) Kind() Kind    { return KindCustom }
func (*VoidVariant) Kind() Kind      { return KindVoid }

func (v *ObjectVariant) clone() Variant {
	return &ObjectVariant{Properties: v.Properties.Clone(), AdditionalProperties: v.AdditionalProperties}
}

func (v *ArrayVariant) clone() Variant { return &ArrayVariant{Items: v.Items.Clone()} }
func (v *OneOfVariant) clone() Variant { return &OneOfVariant{Properties: v.Properties.Clone()} }
func (v *RefVariant) clone() Variant   { c := *v; return &c }

func (v *ConstantVariant) clone() Variant  { c := *v; return &c }
func (v *EnumVariant) clone() Variant      { c := *v; return &c }
func (v *EnumArrayVariant) clone() Variant { c := *v; return &c }
func (v *SimpleVariant) clone() Variant    { return &SimpleVariant{Schema: CloneValue(v.Schema)} }
func (v *CustomVariant) clone() Variant    { c := *v; return &c }
func (*VoidVariant) clone() Variant        { return &VoidVariant{} }

func (v *ComplexVariant) clone() Variant {
	return &ComplexVariant{JSONSchema: CloneValue(v.JSONSchema), BSONSchema: CloneValue(v.BSONSchema)}
}

// NewNode returns a node with the given variant. A nil variant is void.
func NewNode(description string, v Variant) *PropertyNode {
	if v == nil {
		v = &VoidVariant{}
	}
	return &PropertyNode{Description: description, Variant: v}
}

// Kind returns the node's variant kind.
func (n *PropertyNode) Kind() Kind {
	if n == nil || n.Variant == nil {
		return KindVoid
	}
	return n.Variant.Kind()
}

// Properties returns the children of an object or one_of node, nil otherwise.
func (n *PropertyNode) Properties() *Properties {
	if n == nil {
		return nil
	}
	switch v := n.Variant.(type) {
	case *ObjectVariant:
		return v.Properties
	case *OneOfVariant:
		return v.Properties
	}
	return nil
}

// Items returns the items node of an array, nil otherwise.
func (n *PropertyNode) Items() *PropertyNode {
	if n == nil {
		return nil
	}
	if v, ok := n.Variant.(*ArrayVariant); ok {
		return v.Items
	}
	return nil
}

// Clone returns a deep copy sharing no mutable state with n.
func (n *PropertyNode) Clone() *PropertyNode {
	if n == nil {
		return nil
	}
	c := &PropertyNode{Description: n.Description, Required: n.Required}
	if n.Variant == nil {
		c.Variant = &VoidVariant{}
	} else {
		c.Variant = n.Variant.clone()
	}
	return c
}

// Lookup walks path from n and returns the addressed node.
func (n *PropertyNode) Lookup(path Path) (*PropertyNode, error) {
	cur := n
	for i, step := range path {
		if step == ItemsStep {
			items := cur.Items()
			if items == nil {
				return nil, fmt.Errorf("%w: %s is not an array", apperr.ErrNotFound, path[:i])
			}
			cur = items
			continue
		}
		props := cur.Properties()
		if props == nil {
			return nil, fmt.Errorf("%w: %s has no properties", apperr.ErrNotFound, path[:i])
		}
		child, ok := props.Get(step)
		if !ok {
			return nil, fmt.Errorf("%w: property %s", apperr.ErrNotFound, path[:i+1])
		}
		cur = child
	}
	return cur, nil
}

// Walk visits n and every descendant depth-first in property order.
// Returning false from fn skips the node's descendants.
func (n *PropertyNode) Walk(fn func(path Path, node *PropertyNode) bool) {
	n.walk(nil, fn)
}

func (n *PropertyNode) walk(path Path, fn func(Path, *PropertyNode) bool) {
	if n == nil || !fn(path, n) {
		return
	}
	if items := n.Items(); items != nil {
		items.walk(path.Items(), fn)
		return
	}
	if props := n.Properties(); props != nil {
		for key, child := range props.All() {
			child.walk(path.Child(key), fn)
		}
	}
}

// CloneValue deep-copies a decoded JSON/YAML value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}
