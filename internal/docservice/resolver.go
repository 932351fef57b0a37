package docservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

// resolver looks names up in the newest version of their family.
type resolver struct {
	svc   *Service
	enums *models.EnumeratorDocument
}

func (r *resolver) newest(ctx context.Context, family models.Family) (*models.PropertyNode, error) {
	listing, _, ok, err := r.svc.versions.Newest(ctx, family)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, family)
	}
	doc, err := r.svc.store.Get(ctx, family, listing.FileName)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// Reference prefers a dictionary of the given name and falls back to a type.
func (r *resolver) Reference(ctx context.Context, name string) (*models.PropertyNode, error) {
	root, err := r.newest(ctx, models.Family{Kind: models.DocDictionaries, Name: name})
	if errors.Is(err, apperr.ErrNotFound) {
		return r.Type(ctx, name)
	}
	return root, err
}

func (r *resolver) Type(ctx context.Context, name string) (*models.PropertyNode, error) {
	return r.newest(ctx, models.Family{Kind: models.DocTypes, Name: name})
}

func (r *resolver) Enumeration(ctx context.Context, name string) ([]string, error) {
	if r.enums == nil {
		listing, _, ok, err := r.svc.versions.NewestEnumerators(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: no enumerator document", apperr.ErrNotFound)
		}
		if r.enums, err = r.svc.store.GetEnumerators(ctx, listing.FileName); err != nil {
			return nil, err
		}
	}
	values, ok := models.EnumerationValues(r.enums.Enumerations, name)
	if !ok {
		return nil, fmt.Errorf("%w: enumeration %s", apperr.ErrNotFound, name)
	}
	return values, nil
}
