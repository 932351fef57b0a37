package models

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/schemakit/internal/apperr"
)

// Properties is an insertion-ordered map of child property nodes. The
// order is part of the document and survives every edit and round trip.
type Properties struct {
	m *orderedmap.OrderedMap[string, *PropertyNode]
}

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return &Properties{m: orderedmap.New[string, *PropertyNode]()}
}

func (p *Properties) om() *orderedmap.OrderedMap[string, *PropertyNode] {
	if p.m == nil {
		p.m = orderedmap.New[string, *PropertyNode]()
	}
	return p.m
}

// Len returns the number of children.
func (p *Properties) Len() int {
	if p == nil || p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Get returns the child stored under key.
func (p *Properties) Get(key string) (*PropertyNode, bool) {
	if p == nil || p.m == nil {
		return nil, false
	}
	return p.m.Get(key)
}

// Has reports whether key is present.
func (p *Properties) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Keys returns the keys in order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, p.Len())
	for k := range p.All() {
		keys = append(keys, k)
	}
	return keys
}

// Index returns the position of key, or -1.
func (p *Properties) Index(key string) int {
	i := 0
	for k := range p.All() {
		if k == key {
			return i
		}
		i++
	}
	return -1
}

// All iterates the children in order.
func (p *Properties) All() iter.Seq2[string, *PropertyNode] {
	return func(yield func(string, *PropertyNode) bool) {
		if p == nil || p.m == nil {
			return
		}
		for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Set stores node under key, appending when key is new and replacing in
// place otherwise.
func (p *Properties) Set(key string, node *PropertyNode) {
	p.om().Set(key, node)
}

// Delete removes key and reports whether it was present.
func (p *Properties) Delete(key string) bool {
	if p == nil || p.m == nil {
		return false
	}
	_, ok := p.m.Delete(key)
	return ok
}

// Move removes the entry at from and re-inserts it at to, shifting the
// entries in between.
func (p *Properties) Move(from, to int) error {
	n := p.Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d out of range [0,%d)", apperr.ErrInvalidOperation, from, to, n)
	}
	if from == to {
		return nil
	}
	keys := p.Keys()
	if from < to {
		return p.m.MoveAfter(keys[from], keys[to])
	}
	return p.m.MoveBefore(keys[from], keys[to])
}

// Rename changes the key of an entry without moving it.
func (p *Properties) Rename(oldKey, newKey string) error {
	node, ok := p.Get(oldKey)
	if !ok {
		return fmt.Errorf("%w: property %q", apperr.ErrNotFound, oldKey)
	}
	if oldKey == newKey {
		return nil
	}
	if p.Has(newKey) {
		return fmt.Errorf("%w: property %q", apperr.ErrAlreadyExists, newKey)
	}
	p.m.Set(newKey, node)
	if err := p.m.MoveBefore(newKey, oldKey); err != nil {
		p.m.Delete(newKey)
		return err
	}
	p.m.Delete(oldKey)
	return nil
}

// Clone deep-copies the map and every child.
func (p *Properties) Clone() *Properties {
	out := NewProperties()
	for k, v := range p.All() {
		out.m.Set(k, v.Clone())
	}
	return out
}

// MarshalYAML emits the children as an ordered mapping.
func (p *Properties) MarshalYAML() (any, error) {
	return p.om().MarshalYAML()
}

// UnmarshalYAML reads an ordered mapping. Every key must be an addressable
// property name that appears once, and every value a property node.
func (p *Properties) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*p = *NewProperties()
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: properties must be a mapping", apperr.ErrInvalidDocument, value.Line)
	}
	out := NewProperties()
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return fmt.Errorf("%w: line %d: property key: %v", apperr.ErrInvalidDocument, keyNode.Line, err)
		}
		if out.Has(key) {
			return fmt.Errorf("%w: line %d: property %q is defined twice", apperr.ErrInvalidDocument, keyNode.Line, key)
		}
		if valNode.Kind == yaml.ScalarNode && valNode.Tag == "!!null" {
			return fmt.Errorf("%w: line %d: property %q has no node", apperr.ErrInvalidDocument, valNode.Line, key)
		}
		node := &PropertyNode{}
		if err := valNode.Decode(node); err != nil {
			return err
		}
		out.m.Set(key, node)
	}
	if err := out.validate(); err != nil {
		return err
	}
	*p = *out
	return nil
}

// validate checks what the ordered map decoders cannot: names that paths
// can address and no empty children.
func (p *Properties) validate() error {
	for k, v := range p.All() {
		if err := ValidateName(k); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidDocument, err)
		}
		if v == nil {
			return fmt.Errorf("%w: property %q has no node", apperr.ErrInvalidDocument, k)
		}
	}
	return nil
}

// MarshalJSON emits the children as an ordered object.
func (p *Properties) MarshalJSON() ([]byte, error) {
	return p.om().MarshalJSON()
}

// UnmarshalJSON reads an ordered object.
func (p *Properties) UnmarshalJSON(data []byte) error {
	out := NewProperties()
	if err := out.m.UnmarshalJSON(data); err != nil {
		return err
	}
	if err := out.validate(); err != nil {
		return err
	}
	*p = *out
	return nil
}
