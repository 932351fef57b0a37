// Package bsonschema renders property trees as MongoDB $jsonSchema
// validators.
package bsonschema

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

// DefaultMaxDepth bounds how many ref and custom hops one rendering follows.
const DefaultMaxDepth = 16

// Resolver looks up the artifacts a tree refers to by name.
type Resolver interface {
	// Reference returns the root of the newest document a ref node targets.
	Reference(ctx context.Context, name string) (*models.PropertyNode, error)
	// Type returns the root of the newest version of a type document.
	Type(ctx context.Context, name string) (*models.PropertyNode, error)
	// Enumeration returns the values of a named enumeration.
	Enumeration(ctx context.Context, name string) ([]string, error)
}

// Renderer converts property trees to $jsonSchema documents.
type Renderer struct {
	resolver Resolver
	maxDepth int
}

// New returns a renderer. maxDepth <= 0 selects DefaultMaxDepth.
func New(resolver Resolver, maxDepth int) *Renderer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Renderer{resolver: resolver, maxDepth: maxDepth}
}

// Validator wraps the schema of root in a {$jsonSchema: ...} document.
func (r *Renderer) Validator(ctx context.Context, root *models.PropertyNode) (bson.D, error) {
	schema, err := r.Schema(ctx, root)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: "$jsonSchema", Value: schema}}, nil
}

// Schema renders one node and everything below it.
func (r *Renderer) Schema(ctx context.Context, node *models.PropertyNode) (bson.D, error) {
	return r.render(ctx, node, 0)
}

// MarshalJSON encodes d as relaxed Extended JSON.
func MarshalJSON(d bson.D) ([]byte, error) {
	return bson.MarshalExtJSON(d, false, false)
}

// Marshal encodes d as a BSON document.
func Marshal(d bson.D) ([]byte, error) {
	return bson.Marshal(d)
}

func (r *Renderer) render(ctx context.Context, node *models.PropertyNode, depth int) (bson.D, error) {
	if depth > r.maxDepth {
		return nil, fmt.Errorf("%w: references nest deeper than %d", apperr.ErrInvalidDocument, r.maxDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bson.D
	switch v := node.Variant.(type) {
	case *models.ObjectVariant:
		props, required, err := r.properties(ctx, v.Properties, depth)
		if err != nil {
			return nil, err
		}
		out = bson.D{{Key: "bsonType", Value: "object"}}
		if len(required) > 0 {
			out = append(out, bson.E{Key: "required", Value: required})
		}
		out = append(out,
			bson.E{Key: "properties", Value: props},
			bson.E{Key: "additionalProperties", Value: v.AdditionalProperties})

	case *models.OneOfVariant:
		alts := bson.A{}
		if v.Properties != nil {
			for _, child := range v.Properties.All() {
				s, err := r.render(ctx, child, depth)
				if err != nil {
					return nil, err
				}
				alts = append(alts, s)
			}
		}
		out = bson.D{{Key: "oneOf", Value: alts}}

	case *models.ArrayVariant:
		items, err := r.render(ctx, v.Items, depth)
		if err != nil {
			return nil, err
		}
		out = bson.D{{Key: "bsonType", Value: "array"}, {Key: "items", Value: items}}

	case *models.RefVariant:
		target, err := r.resolver.Reference(ctx, v.Target)
		if err != nil {
			return nil, fmt.Errorf("bsonschema: ref %q: %w", v.Target, err)
		}
		out, err = r.render(ctx, target, depth+1)
		if err != nil {
			return nil, err
		}

	case *models.CustomVariant:
		target, err := r.resolver.Type(ctx, v.TypeName)
		if err != nil {
			return nil, fmt.Errorf("bsonschema: type %q: %w", v.TypeName, err)
		}
		out, err = r.render(ctx, target, depth+1)
		if err != nil {
			return nil, err
		}

	case *models.ConstantVariant:
		out = bson.D{{Key: "enum", Value: bson.A{v.Value}}}

	case *models.EnumVariant:
		values, err := r.enumeration(ctx, v.Enumeration)
		if err != nil {
			return nil, err
		}
		out = bson.D{{Key: "bsonType", Value: "string"}, {Key: "enum", Value: values}}

	case *models.EnumArrayVariant:
		values, err := r.enumeration(ctx, v.Enumeration)
		if err != nil {
			return nil, err
		}
		out = bson.D{
			{Key: "bsonType", Value: "array"},
			{Key: "items", Value: bson.D{{Key: "bsonType", Value: "string"}, {Key: "enum", Value: values}}},
		}

	case *models.SimpleVariant:
		out = fragment(v.Schema)

	case *models.ComplexVariant:
		out = fragment(v.BSONSchema)

	default:
		out = bson.D{}
	}

	if node.Description != "" && !hasKey(out, "description") {
		out = append(out, bson.E{Key: "description", Value: node.Description})
	}
	return out, nil
}

func (r *Renderer) properties(ctx context.Context, props *models.Properties, depth int) (bson.D, bson.A, error) {
	out := bson.D{}
	required := bson.A{}
	if props == nil {
		return out, required, nil
	}
	for key, child := range props.All() {
		s, err := r.render(ctx, child, depth)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, bson.E{Key: key, Value: s})
		if child.Required {
			required = append(required, key)
		}
	}
	return out, required, nil
}

func (r *Renderer) enumeration(ctx context.Context, name string) (bson.A, error) {
	values, err := r.resolver.Enumeration(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("bsonschema: enumeration %q: %w", name, err)
	}
	out := make(bson.A, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out, nil
}

func hasKey(d bson.D, key string) bool {
	for _, e := range d {
		if e.Key == key {
			return true
		}
	}
	return false
}

// fragment converts a decoded YAML or JSON schema fragment into a bson.D
// with keys in sorted order.
func fragment(v any) bson.D {
	m, ok := v.(map[string]any)
	if !ok {
		return bson.D{}
	}
	return toD(m)
}

func toD(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: toValue(m[k])})
	}
	return out
}

func toValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return toD(t)
	case []any:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = toValue(e)
		}
		return out
	case int:
		return int64(t)
	case float64:
		// JSON numbers arrive as float64; keep integral bounds integral.
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	}
	return v
}
