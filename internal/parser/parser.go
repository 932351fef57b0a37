// Package parser decodes stored schema documents and extracts the text and
// references the catalog index keeps about them.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

// Reference types.
const (
	RefDocument    = "ref"
	RefType        = "custom"
	RefEnumeration = "enum"
)

// Reference is an outgoing edge from a document to another artifact.
type Reference struct {
	Target string
	Type   string
}

// Result holds the output of parsing a stored file.
type Result struct {
	Kind        models.DocumentKind
	Family      models.Family
	Version     string
	Components  [4]int
	Locked      bool
	Title       string
	Body        string
	Refs        []Reference
	Document    *models.Document
	Enumerators *models.EnumeratorDocument
}

// Parse decodes the file stored at path (kind/fileName).
func Parse(path string, data []byte) (*Result, error) {
	kind, fileName, err := models.ParseStoragePath(path)
	if err != nil {
		return nil, err
	}
	if kind == models.DocEnumerators {
		doc, err := DecodeEnumerators(fileName, data)
		if err != nil {
			return nil, err
		}
		return &Result{
			Kind:        kind,
			Family:      models.EnumeratorFamily,
			Version:     fmt.Sprint(doc.Version),
			Components:  [4]int{doc.Version},
			Locked:      doc.Locked,
			Title:       models.EnumeratorFamilyName,
			Body:        enumeratorText(doc.Enumerations),
			Enumerators: doc,
		}, nil
	}

	doc, err := DecodeDocument(fileName, data)
	if err != nil {
		return nil, err
	}
	name, v, _ := models.ParseConfigFileName(fileName)
	title := doc.Root.Description
	if title == "" {
		title = name
	}
	return &Result{
		Kind:       kind,
		Family:     models.Family{Kind: kind, Name: name},
		Version:    v.String(),
		Components: [4]int{v.Major, v.Minor, v.Patch, v.Enumerators},
		Locked:     doc.Locked,
		Title:      title,
		Body:       treeText(doc.Root),
		Refs:       References(doc.Root),
		Document:   doc,
	}, nil
}

// DecodeDocument decodes a dictionary or type file. The file name is
// authoritative for FileName and Version.
func DecodeDocument(fileName string, data []byte) (*models.Document, error) {
	_, v, err := models.ParseConfigFileName(fileName)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrInvalidDocument, fileName, err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: %s has no root", apperr.ErrInvalidDocument, fileName)
	}
	doc.Root.Required = false
	doc.FileName = fileName
	doc.Version = v
	return &doc, nil
}

// DecodeEnumerators decodes an enumerator file.
func DecodeEnumerators(fileName string, data []byte) (*models.EnumeratorDocument, error) {
	v, err := models.ParseEnumeratorFileName(fileName)
	if err != nil {
		return nil, err
	}
	var doc models.EnumeratorDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrInvalidDocument, fileName, err)
	}
	if doc.Enumerations == nil {
		doc.Enumerations = models.NewEnumerations()
	}
	doc.FileName = fileName
	doc.Version = v
	return &doc, nil
}

// EncodeDocument renders doc in its stored form.
func EncodeDocument(doc *models.Document) ([]byte, error) {
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: %s has no root", apperr.ErrInvalidDocument, doc.FileName)
	}
	return encode(doc)
}

// EncodeEnumerators renders doc in its stored form.
func EncodeEnumerators(doc *models.EnumeratorDocument) ([]byte, error) {
	if doc.Enumerations == nil {
		doc.Enumerations = models.NewEnumerations()
	}
	return encode(doc)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// References returns the deduplicated outgoing references of a tree in
// walk order.
func References(root *models.PropertyNode) []Reference {
	seen := make(map[Reference]struct{})
	var out []Reference
	add := func(r Reference) {
		if r.Target == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	root.Walk(func(_ models.Path, n *models.PropertyNode) bool {
		switch v := n.Variant.(type) {
		case *models.RefVariant:
			add(Reference{Target: v.Target, Type: RefDocument})
		case *models.CustomVariant:
			add(Reference{Target: v.TypeName, Type: RefType})
		case *models.EnumVariant:
			add(Reference{Target: v.Enumeration, Type: RefEnumeration})
		case *models.EnumArrayVariant:
			add(Reference{Target: v.Enumeration, Type: RefEnumeration})
		}
		return true
	})
	return out
}

func treeText(root *models.PropertyNode) string {
	var sb strings.Builder
	root.Walk(func(p models.Path, n *models.PropertyNode) bool {
		if last := p.Last(); last != "" && last != models.ItemsStep {
			sb.WriteString(last)
			sb.WriteByte(' ')
		}
		if n.Description != "" {
			sb.WriteString(n.Description)
			sb.WriteByte('\n')
		}
		return true
	})
	return strings.TrimSpace(sb.String())
}

func enumeratorText(enums *models.Enumerations) string {
	var sb strings.Builder
	for pair := enums.Oldest(); pair != nil; pair = pair.Next() {
		sb.WriteString(pair.Key)
		sb.WriteByte('\n')
		if pair.Value == nil {
			continue
		}
		for v := pair.Value.Oldest(); v != nil; v = v.Next() {
			sb.WriteString(v.Key + " " + v.Value + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
