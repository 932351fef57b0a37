package api

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/docservice"
	"github.com/starford/schemakit/internal/editor"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/tree"
	"github.com/starford/schemakit/internal/variant"
)

// PutDocumentRequest is the request body for creating or replacing a
// document. Root is used by dictionaries and types, Enumerations by
// enumerator documents.
type PutDocumentRequest struct {
	Root         *models.PropertyNode `json:"root,omitempty"`
	Enumerations *models.Enumerations `json:"enumerations,omitempty"`
}

// Validate checks that the body carries the payload of kind.
func (r *PutDocumentRequest) Validate(kind models.DocumentKind) error {
	enums := kind == models.DocEnumerators
	return validation.ValidateStruct(r,
		validation.Field(&r.Root,
			validation.When(!enums, validation.Required),
			validation.When(enums, validation.Nil.Error("is not used by enumerator documents"))),
		validation.Field(&r.Enumerations,
			validation.When(enums, validation.Required),
			validation.When(!enums, validation.Nil.Error("is only used by enumerator documents"))),
	)
}

// OpsRequest is the request body of an edit batch.
type OpsRequest struct {
	Ops []editor.Op `json:"ops" validate:"required"`
}

// Validate requires a non-empty batch. Individual ops are validated by the
// editing session.
func (r *OpsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ops, validation.Required, validation.Length(1, 500)),
	)
}

// VersionRequest selects the components to bump. Enumerator documents
// ignore it.
type VersionRequest struct {
	Major       bool `json:"major"`
	Minor       bool `json:"minor"`
	Patch       bool `json:"patch"`
	Enumerators bool `json:"enumerators"`
}

// VariantsQuery is the query of GET /variants.
type VariantsQuery struct {
	Kind string
	Slot string
}

// Validate checks both names.
func (q VariantsQuery) Validate() error {
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Kind, validation.Required,
			validation.In(string(models.DocDictionaries), string(models.DocTypes))),
		validation.Field(&q.Slot, validation.Required,
			validation.In(string(variant.SlotRoot), string(variant.SlotProperty), string(variant.SlotItems))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidOperation, err)
	}
	return nil
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.Listing `json:"documents" validate:"required"`
	Total     int              `json:"total" example:"3" validate:"required"`
}

// OpsResponse is returned after an edit batch was saved.
type OpsResponse struct {
	Document *DocumentDetail `json:"document" validate:"required"`
	Events   []tree.Event    `json:"events" validate:"required"`
	Added    []string        `json:"added" validate:"required"`
}

// VariantsResponse lists the kinds offered at a position.
type VariantsResponse struct {
	Kinds []models.Kind `json:"kinds" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []docservice.SearchResult `json:"results" validate:"required"`
}

// ReferencesResponse lists the documents using a name.
type ReferencesResponse struct {
	Name       string                 `json:"name" example:"address" validate:"required"`
	References []docservice.Reference `json:"references" validate:"required"`
}
