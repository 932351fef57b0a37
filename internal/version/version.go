// Package version derives new document versions from the newest member of
// a document family.
package version

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/lock"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/variant"
)

// Adapter is the persistence contract the controller works against.
type Adapter interface {
	Get(ctx context.Context, family models.Family, fileName string) (*models.Document, error)
	Put(ctx context.Context, family models.Family, fileName string, doc *models.Document) (*models.Document, error)
	Delete(ctx context.Context, family models.Family, fileName string) error
	List(ctx context.Context, family models.Family) ([]models.Listing, error)
	GetEnumerators(ctx context.Context, fileName string) (*models.EnumeratorDocument, error)
	PutEnumerators(ctx context.Context, fileName string, doc *models.EnumeratorDocument) (*models.EnumeratorDocument, error)
}

// Bump selects the version components to increment.
type Bump struct {
	Major       bool `json:"major"`
	Minor       bool `json:"minor"`
	Patch       bool `json:"patch"`
	Enumerators bool `json:"enumerators"`
}

// Next applies b to v. The highest selected of major, minor and patch is
// incremented and the components below it reset to zero; the enumerators
// component only moves when selected.
func Next(v models.ConfigVersion, b Bump) (models.ConfigVersion, error) {
	switch {
	case b.Major:
		v.Major, v.Minor, v.Patch = v.Major+1, 0, 0
	case b.Minor:
		v.Minor, v.Patch = v.Minor+1, 0
	case b.Patch:
		v.Patch++
	case !b.Enumerators:
		return v, fmt.Errorf("%w: no version component selected", apperr.ErrInvalidOperation)
	}
	if b.Enumerators {
		v.Enumerators++
	}
	return v, nil
}

// Controller runs the version lifecycle of document families.
type Controller struct {
	store  Adapter
	logger *slog.Logger
}

// NewController returns a controller backed by store.
func NewController(store Adapter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: store, logger: logger}
}

// Newest returns the listing of the numerically greatest version of a
// dictionary or type family. ok is false for an empty family.
func (c *Controller) Newest(ctx context.Context, family models.Family) (models.Listing, models.ConfigVersion, bool, error) {
	listings, err := c.store.List(ctx, family)
	if err != nil {
		return models.Listing{}, models.ConfigVersion{}, false, err
	}
	var (
		best    models.Listing
		bestVer models.ConfigVersion
		found   bool
	)
	for _, l := range listings {
		_, v, err := models.ParseConfigFileName(l.FileName)
		if err != nil {
			c.logger.Warn("version: skipping unparseable file", slog.String("file", l.FileName))
			continue
		}
		if !found || v.Compare(bestVer) > 0 {
			best, bestVer, found = l, v, true
		}
	}
	return best, bestVer, found, nil
}

// NewestEnumerators returns the listing of the greatest enumerator version.
func (c *Controller) NewestEnumerators(ctx context.Context) (models.Listing, int, bool, error) {
	listings, err := c.store.List(ctx, models.EnumeratorFamily)
	if err != nil {
		return models.Listing{}, 0, false, err
	}
	var (
		best    models.Listing
		bestVer int
		found   bool
	)
	for _, l := range listings {
		v, err := models.ParseEnumeratorFileName(l.FileName)
		if err != nil {
			c.logger.Warn("version: skipping unparseable file", slog.String("file", l.FileName))
			continue
		}
		if !found || v > bestVer {
			best, bestVer, found = l, v, true
		}
	}
	return best, bestVer, found, nil
}

// IsNewest reports whether fileName is the newest version of family.
func (c *Controller) IsNewest(ctx context.Context, family models.Family, fileName string) (bool, error) {
	if family.Kind == models.DocEnumerators {
		newest, _, ok, err := c.NewestEnumerators(ctx)
		return ok && newest.FileName == fileName, err
	}
	newest, _, ok, err := c.Newest(ctx, family)
	return ok && newest.FileName == fileName, err
}

// CreateNewVersion locks the newest version of family, clones its tree and
// stores the clone, unlocked, under the next version.
func (c *Controller) CreateNewVersion(ctx context.Context, family models.Family, bump Bump) (*models.Document, error) {
	if family.Kind == models.DocEnumerators {
		return nil, fmt.Errorf("%w: enumerators are versioned with CreateNewEnumeratorVersion", apperr.ErrInvalidOperation)
	}
	if err := models.ValidateFamilyName(family.Name); err != nil {
		return nil, err
	}

	newest, current, ok, err := c.Newest(ctx, family)
	if err != nil {
		return nil, err
	}

	next, err := Next(current, bump)
	if err != nil {
		return nil, err
	}

	root := variant.DefaultRoot(family.Kind)
	if ok {
		source, err := c.store.Get(ctx, family, newest.FileName)
		if err != nil {
			return nil, err
		}
		if !source.IsLocked() {
			lock.Lock(source)
			if _, err := c.store.Put(ctx, family, source.FileName, source); err != nil {
				return nil, err
			}
			c.logger.Info("version: locked source", slog.String("file", source.FileName))
		}
		root = source.Root.Clone()
	}

	fileName := models.ConfigFileName(family.Name, next)
	doc := &models.Document{
		FileName: fileName,
		Locked:   false,
		Version:  next,
		Root:     root,
	}
	saved, err := c.store.Put(ctx, family, fileName, doc)
	if err != nil {
		return nil, err
	}
	c.logger.Info("version: created",
		slog.String("family", family.String()),
		slog.String("version", next.String()))
	return saved, nil
}

// CreateNewEnumeratorVersion locks the newest enumerator document and
// stores a deep copy as version max+1.
func (c *Controller) CreateNewEnumeratorVersion(ctx context.Context) (*models.EnumeratorDocument, error) {
	newest, current, ok, err := c.NewestEnumerators(ctx)
	if err != nil {
		return nil, err
	}

	enums := models.NewEnumerations()
	if ok {
		source, err := c.store.GetEnumerators(ctx, newest.FileName)
		if err != nil {
			return nil, err
		}
		if !source.IsLocked() {
			lock.Lock(source)
			if _, err := c.store.PutEnumerators(ctx, source.FileName, source); err != nil {
				return nil, err
			}
			c.logger.Info("version: locked source", slog.String("file", source.FileName))
		}
		enums = models.CloneEnumerations(source.Enumerations)
	}

	next := current + 1
	fileName := models.EnumeratorFileName(next)
	saved, err := c.store.PutEnumerators(ctx, fileName, &models.EnumeratorDocument{
		FileName:     fileName,
		Version:      next,
		Enumerations: enums,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("version: created enumerators", slog.Int("version", next))
	return saved, nil
}

// AdmitWrite checks that fileName may be written in place. Only the newest
// member of a family is editable: writing an older version is
// ErrNotNewestVersion. Writing a version above the current newest
// supersedes it, so the current newest is locked first and its file name
// returned.
func (c *Controller) AdmitWrite(ctx context.Context, family models.Family, fileName string) (superseded string, err error) {
	var (
		newest models.Listing
		cmp    int
		ok     bool
	)
	if family.Kind == models.DocEnumerators {
		target, err := models.ParseEnumeratorFileName(fileName)
		if err != nil {
			return "", err
		}
		var current int
		if newest, current, ok, err = c.NewestEnumerators(ctx); err != nil {
			return "", err
		}
		cmp = target - current
	} else {
		_, target, err := models.ParseConfigFileName(fileName)
		if err != nil {
			return "", err
		}
		var current models.ConfigVersion
		if newest, current, ok, err = c.Newest(ctx, family); err != nil {
			return "", err
		}
		cmp = target.Compare(current)
	}

	switch {
	case !ok || cmp == 0:
		return "", nil
	case cmp < 0:
		return "", fmt.Errorf("%w: %s is superseded by %s", apperr.ErrNotNewestVersion, fileName, newest.FileName)
	}
	if err := c.Lock(ctx, family, newest.FileName); err != nil {
		return "", err
	}
	c.logger.Info("version: locked superseded", slog.String("file", newest.FileName), slog.String("by", fileName))
	return newest.FileName, nil
}

// Lock locks a stored document. Locking a locked document is a no-op.
func (c *Controller) Lock(ctx context.Context, family models.Family, fileName string) error {
	if family.Kind == models.DocEnumerators {
		doc, err := c.store.GetEnumerators(ctx, fileName)
		if err != nil {
			return err
		}
		if doc.IsLocked() {
			return nil
		}
		lock.Lock(doc)
		_, err = c.store.PutEnumerators(ctx, fileName, doc)
		return err
	}
	doc, err := c.store.Get(ctx, family, fileName)
	if err != nil {
		return err
	}
	if doc.IsLocked() {
		return nil
	}
	lock.Lock(doc)
	_, err = c.store.Put(ctx, family, fileName, doc)
	return err
}

// Unlock unlocks a stored document if it is the newest of its family.
func (c *Controller) Unlock(ctx context.Context, family models.Family, fileName string) error {
	newest, err := c.IsNewest(ctx, family, fileName)
	if err != nil {
		return err
	}
	var doc lock.Lockable
	if family.Kind == models.DocEnumerators {
		doc, err = c.store.GetEnumerators(ctx, fileName)
	} else {
		doc, err = c.store.Get(ctx, family, fileName)
	}
	if err != nil {
		return err
	}
	if !doc.IsLocked() {
		return nil
	}
	if err := lock.Unlock(doc, newest); err != nil {
		return err
	}
	switch d := doc.(type) {
	case *models.EnumeratorDocument:
		_, err = c.store.PutEnumerators(ctx, fileName, d)
	case *models.Document:
		_, err = c.store.Put(ctx, family, fileName, d)
	}
	return err
}
