package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/schemakit/internal/apperr"
)

// nodeDoc is the persisted shape of a PropertyNode. Only the fields of the
// node's kind are populated.
type nodeDoc struct {
	Description          string        `yaml:"description" json:"description"`
	Type                 Kind          `yaml:"type" json:"type"`
	Required             bool          `yaml:"required,omitempty" json:"required,omitempty"`
	Properties           *Properties   `yaml:"properties,omitempty" json:"properties,omitempty"`
	AdditionalProperties *bool         `yaml:"additional_properties,omitempty" json:"additional_properties,omitempty"`
	Items                *PropertyNode `yaml:"items,omitempty" json:"items,omitempty"`
	Ref                  *string       `yaml:"ref,omitempty" json:"ref,omitempty"`
	Value                *string       `yaml:"value,omitempty" json:"value,omitempty"`
	Enums                *string       `yaml:"enums,omitempty" json:"enums,omitempty"`
	Schema               any           `yaml:"schema,omitempty" json:"schema,omitempty"`
	JSONType             any           `yaml:"json_type,omitempty" json:"json_type,omitempty"`
	BSONType             any           `yaml:"bson_type,omitempty" json:"bson_type,omitempty"`
	CustomType           *string       `yaml:"custom_type,omitempty" json:"custom_type,omitempty"`
}

func (n *PropertyNode) toDoc() nodeDoc {
	d := nodeDoc{Description: n.Description, Type: n.Kind(), Required: n.Required}
	switch v := n.Variant.(type) {
	case *ObjectVariant:
		props := v.Properties
		if props == nil {
			props = NewProperties()
		}
		additional := v.AdditionalProperties
		d.Properties, d.AdditionalProperties = props, &additional
	case *OneOfVariant:
		props := v.Properties
		if props == nil {
			props = NewProperties()
		}
		d.Properties = props
	case *ArrayVariant:
		d.Items = v.Items
	case *RefVariant:
		d.Ref = &v.Target
	case *ConstantVariant:
		d.Value = &v.Value
	case *EnumVariant:
		d.Enums = &v.Enumeration
	case *EnumArrayVariant:
		d.Enums = &v.Enumeration
	case *SimpleVariant:
		d.Schema = v.Schema
	case *ComplexVariant:
		d.JSONType, d.BSONType = v.JSONSchema, v.BSONSchema
	case *CustomVariant:
		d.CustomType = &v.TypeName
	}
	return d
}

// fieldsOf lists the persisted payload fields present on d.
func (d *nodeDoc) fieldsOf() []string {
	var out []string
	add := func(present bool, name string) {
		if present {
			out = append(out, name)
		}
	}
	add(d.Properties != nil, "properties")
	add(d.AdditionalProperties != nil, "additional_properties")
	add(d.Items != nil, "items")
	add(d.Ref != nil, "ref")
	add(d.Value != nil, "value")
	add(d.Enums != nil, "enums")
	add(d.Schema != nil, "schema")
	add(d.JSONType != nil, "json_type")
	add(d.BSONType != nil, "bson_type")
	add(d.CustomType != nil, "custom_type")
	return out
}

var allowedFields = map[Kind]map[string]bool{
	KindVoid:      {},
	KindObject:    {"properties": true, "additional_properties": true},
	KindArray:     {"items": true},
	KindOneOf:     {"properties": true},
	KindRef:       {"ref": true},
	KindConstant:  {"value": true},
	KindEnum:      {"enums": true},
	KindEnumArray: {"enums": true},
	KindSimple:    {"schema": true},
	KindComplex:   {"json_type": true, "bson_type": true},
	KindCustom:    {"custom_type": true},
}

func (d *nodeDoc) toNode() (*PropertyNode, error) {
	kind, err := ParseKind(string(d.Type))
	if err != nil {
		return nil, err
	}
	for _, f := range d.fieldsOf() {
		if !allowedFields[kind][f] {
			return nil, fmt.Errorf("%w: field %q is not allowed for type %q", apperr.ErrInvalidDocument, f, kind)
		}
	}
	n := &PropertyNode{Description: d.Description, Required: d.Required}
	switch kind {
	case KindObject:
		v := &ObjectVariant{Properties: d.Properties}
		if v.Properties == nil {
			v.Properties = NewProperties()
		}
		if d.AdditionalProperties != nil {
			v.AdditionalProperties = *d.AdditionalProperties
		}
		n.Variant = v
	case KindOneOf:
		v := &OneOfVariant{Properties: d.Properties}
		if v.Properties == nil {
			v.Properties = NewProperties()
		}
		n.Variant = v
	case KindArray:
		if d.Items == nil {
			return nil, fmt.Errorf("%w: array without items", apperr.ErrInvalidDocument)
		}
		n.Variant = &ArrayVariant{Items: d.Items}
	case KindRef:
		n.Variant = &RefVariant{Target: deref(d.Ref)}
	case KindConstant:
		n.Variant = &ConstantVariant{Value: deref(d.Value)}
	case KindEnum:
		n.Variant = &EnumVariant{Enumeration: deref(d.Enums)}
	case KindEnumArray:
		n.Variant = &EnumArrayVariant{Enumeration: deref(d.Enums)}
	case KindSimple:
		n.Variant = &SimpleVariant{Schema: d.Schema}
	case KindComplex:
		n.Variant = &ComplexVariant{JSONSchema: d.JSONType, BSONSchema: d.BSONType}
	case KindCustom:
		n.Variant = &CustomVariant{TypeName: deref(d.CustomType)}
	default:
		n.Variant = &VoidVariant{}
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarshalYAML implements yaml.Marshaler.
func (n *PropertyNode) MarshalYAML() (any, error) {
	return n.toDoc(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *PropertyNode) UnmarshalYAML(value *yaml.Node) error {
	var d nodeDoc
	if err := value.Decode(&d); err != nil {
		return err
	}
	decoded, err := d.toNode()
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n *PropertyNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toDoc())
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *PropertyNode) UnmarshalJSON(data []byte) error {
	var d nodeDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	decoded, err := d.toNode()
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}
