// Package models defines the domain types for schemakit: the recursive
// property tree, document envelopes and the file naming scheme that ties
// documents to their versions.
package models

import (
	"fmt"

	"github.com/starford/schemakit/internal/apperr"
)

// Kind is the discriminator of a PropertyNode variant.
type Kind string

// Property kinds.
const (
	KindVoid      Kind = "void"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindOneOf     Kind = "one_of"
	KindRef       Kind = "ref"
	KindConstant  Kind = "constant"
	KindEnum      Kind = "enum"
	KindEnumArray Kind = "enum_array"
	KindSimple    Kind = "simple"
	KindComplex   Kind = "complex"
	KindCustom    Kind = "custom"
)

// Kinds lists every property kind in display order.
var Kinds = []Kind{
	KindVoid, KindObject, KindArray, KindOneOf, KindRef, KindConstant,
	KindEnum, KindEnumArray, KindSimple, KindComplex, KindCustom,
}

// ParseKind validates s as a property kind. The empty string is void.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindVoid, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown property type %q", apperr.ErrInvalidDocument, s)
}

// DocumentKind names a document collection on disk.
type DocumentKind string

// Document kinds.
const (
	DocDictionaries DocumentKind = "dictionaries"
	DocTypes        DocumentKind = "types"
	DocEnumerators  DocumentKind = "enumerators"
)

// DocumentKinds lists every kind in storage order.
var DocumentKinds = []DocumentKind{DocDictionaries, DocTypes, DocEnumerators}

// ParseDocumentKind validates s as a document kind.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case DocDictionaries, DocTypes, DocEnumerators:
		return DocumentKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown document kind %q", apperr.ErrInvalidOperation, s)
}

// Family identifies every version of one named document.
type Family struct {
	Kind DocumentKind `json:"kind"`
	Name string       `json:"name"`
}

func (f Family) String() string {
	return string(f.Kind) + "/" + f.Name
}

// EnumeratorFamily is the only family of the enumerators kind.
var EnumeratorFamily = Family{Kind: DocEnumerators, Name: EnumeratorFamilyName}

// FamilyOf derives the family a file belongs to from its name.
func FamilyOf(kind DocumentKind, fileName string) (Family, error) {
	if kind == DocEnumerators {
		if _, err := ParseEnumeratorFileName(fileName); err != nil {
			return Family{}, err
		}
		return EnumeratorFamily, nil
	}
	name, _, err := ParseConfigFileName(fileName)
	if err != nil {
		return Family{}, err
	}
	return Family{Kind: kind, Name: name}, nil
}
