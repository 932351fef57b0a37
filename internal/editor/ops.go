package editor

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/tree"
)

// Op names.
const (
	OpAddChild                   = "add_child"
	OpDeleteChild                = "delete_child"
	OpReorder                    = "reorder"
	OpRename                     = "rename"
	OpChangeVariant              = "change_variant"
	OpToggleRequired             = "toggle_required"
	OpToggleAdditionalProperties = "toggle_additional_properties"
	OpSetDescription             = "set_description"
	OpSetRef                     = "set_ref"
	OpSetValue                   = "set_value"
	OpSetEnums                   = "set_enums"
	OpSetSchema                  = "set_schema"
	OpSetJSONType                = "set_json_type"
	OpSetBSONType                = "set_bson_type"
	OpSetCustomType              = "set_custom_type"
)

// OpNames lists every supported op.
var OpNames = []string{
	OpAddChild, OpDeleteChild, OpReorder, OpRename, OpChangeVariant,
	OpToggleRequired, OpToggleAdditionalProperties, OpSetDescription,
	OpSetRef, OpSetValue, OpSetEnums, OpSetSchema, OpSetJSONType,
	OpSetBSONType, OpSetCustomType,
}

// Op is one tree edit. Path addresses the target node (or the parent for
// child operations) in dotted form; "" is the root.
type Op struct {
	Op     string `json:"op" yaml:"op"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	NewKey string `json:"new_key,omitempty" yaml:"new_key,omitempty"`
	From   int    `json:"from,omitempty" yaml:"from,omitempty"`
	To     int    `json:"to,omitempty" yaml:"to,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
}

func anyOf(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// Validate checks that the op carries the fields its name needs.
func (o Op) Validate() error {
	requiredFor := func(names ...string) validation.Rule {
		for _, n := range names {
			if o.Op == n {
				return validation.Required
			}
		}
		return validation.Skip
	}
	kinds := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		kinds[i] = string(k)
	}
	return validation.ValidateStruct(&o,
		validation.Field(&o.Op, validation.Required, validation.In(anyOf(OpNames)...)),
		validation.Field(&o.Key, requiredFor(OpDeleteChild, OpRename)),
		validation.Field(&o.NewKey, requiredFor(OpRename)),
		validation.Field(&o.From, validation.Min(0)),
		validation.Field(&o.To, validation.Min(0)),
		validation.Field(&o.Type, requiredFor(OpChangeVariant), validation.In(anyOf(kinds)...)),
	)
}

// apply runs the op against doc through e. It returns the key generated by
// add_child.
func (o Op) apply(e *tree.Engine, doc *models.Document) (string, error) {
	path, err := models.ParsePath(o.Path)
	if err != nil {
		return "", err
	}
	switch o.Op {
	case OpAddChild:
		return e.AddChild(doc, path)
	case OpDeleteChild:
		return "", e.DeleteChild(doc, path, o.Key)
	case OpReorder:
		return "", e.Reorder(doc, path, o.From, o.To)
	case OpRename:
		return "", e.RenameChild(doc, path, o.Key, o.NewKey)
	case OpChangeVariant:
		return "", e.ChangeVariant(doc, path, models.Kind(o.Type))
	case OpToggleRequired:
		return "", e.ToggleRequired(doc, path)
	case OpToggleAdditionalProperties:
		return "", e.ToggleAdditionalProperties(doc, path)
	case OpSetDescription:
		s, err := o.text()
		if err != nil {
			return "", err
		}
		return "", e.SetDescription(doc, path, s)
	case OpSetRef:
		s, err := o.text()
		if err != nil {
			return "", err
		}
		return "", e.SetReference(doc, path, s)
	case OpSetValue:
		s, err := o.text()
		if err != nil {
			return "", err
		}
		return "", e.SetConstant(doc, path, s)
	case OpSetEnums:
		s, err := o.text()
		if err != nil {
			return "", err
		}
		return "", e.SetEnumeration(doc, path, s)
	case OpSetSchema:
		return "", e.SetSchema(doc, path, o.Value)
	case OpSetJSONType:
		return "", e.SetJSONSchema(doc, path, o.Value)
	case OpSetBSONType:
		return "", e.SetBSONSchema(doc, path, o.Value)
	case OpSetCustomType:
		s, err := o.text()
		if err != nil {
			return "", err
		}
		return "", e.SetCustomType(doc, path, s)
	}
	return "", fmt.Errorf("%w: unknown op %q", apperr.ErrInvalidOperation, o.Op)
}

func (o Op) text() (string, error) {
	switch v := o.Value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	return "", fmt.Errorf("%w: %s expects a string value, got %T", apperr.ErrInvalidOperation, o.Op, o.Value)
}
