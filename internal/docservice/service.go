// Package docservice coordinates the document store, version controller,
// editing sessions and catalog index behind the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/bsonschema"
	"github.com/starford/schemakit/internal/docstore"
	"github.com/starford/schemakit/internal/editor"
	"github.com/starford/schemakit/internal/index"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/parser"
	"github.com/starford/schemakit/internal/variant"
	"github.com/starford/schemakit/internal/version"
)

// Publisher receives document change notifications.
type Publisher interface {
	PublishDocumentEvent(action, kind string, data any)
}

// Change is the payload of a document change notification.
type Change struct {
	Kind     models.DocumentKind `json:"kind"`
	Name     string              `json:"name"`
	FileName string              `json:"file_name"`
	Path     string              `json:"path"`
	Version  string              `json:"version"`
}

// DocumentDetail is the full representation of one stored document.
type DocumentDetail struct {
	Kind        models.DocumentKind        `json:"kind"`
	Name        string                     `json:"name"`
	FileName    string                     `json:"file_name"`
	Version     string                     `json:"version"`
	Locked      bool                       `json:"locked"`
	Checksum    string                     `json:"checksum"`
	Newest      bool                       `json:"newest"`
	Document    *models.Document           `json:"document,omitempty"`
	Enumerators *models.EnumeratorDocument `json:"enumerators,omitempty"`
}

// SearchResult is one catalog search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Reference is a document that uses a named artifact.
type Reference struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Service coordinates storage, versioning and index operations.
type Service struct {
	store    *docstore.Store
	catalog  index.Catalog
	versions *version.Controller
	events   Publisher
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the receiver of change notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxDepth bounds reference resolution during BSON export.
func WithMaxDepth(n int) Option {
	return func(s *Service) { s.maxDepth = n }
}

// NewService creates a document service. catalog may be nil, which
// disables search and reference lookups.
func NewService(store *docstore.Store, catalog index.Catalog, opts ...Option) *Service {
	s := &Service{store: store, catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.versions = version.NewController(store, s.logger)
	return s
}

func (s *Service) publish(action string, c Change) {
	if s.events != nil {
		s.events.PublishDocumentEvent(action, string(c.Kind), c)
	}
}

// NotifyExternal publishes a change made to the store outside this
// service, such as a hand edit picked up by the watcher. path is
// store-relative.
func (s *Service) NotifyExternal(action, path string) {
	kind, fileName, err := models.ParseStoragePath(path)
	if err != nil {
		s.logger.Debug("ignoring external change", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	s.publish(action, change(kind, fileName))
}

func change(kind models.DocumentKind, fileName string) Change {
	f, _ := models.FamilyOf(kind, fileName)
	c := Change{Kind: kind, Name: f.Name, FileName: fileName, Path: models.StoragePath(kind, fileName)}
	if kind == models.DocEnumerators {
		v, _ := models.ParseEnumeratorFileName(fileName)
		c.Version = fmt.Sprint(v)
	} else {
		_, v, _ := models.ParseConfigFileName(fileName)
		c.Version = v.String()
	}
	return c
}

// List returns every stored document of kind.
func (s *Service) List(ctx context.Context, kind models.DocumentKind) ([]models.Listing, error) {
	items, err := s.store.ListKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(items), nil
}

// ListFamily returns every version of one family, oldest first.
func (s *Service) ListFamily(ctx context.Context, family models.Family) ([]models.Listing, error) {
	items, err := s.store.List(ctx, family)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(items), nil
}

// Get reads one document.
func (s *Service) Get(ctx context.Context, kind models.DocumentKind, fileName string) (*DocumentDetail, error) {
	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.Read(ctx, kind, fileName)
	if err != nil {
		return nil, err
	}
	d := &DocumentDetail{
		Kind:     kind,
		Name:     family.Name,
		FileName: fileName,
		Checksum: raw.Checksum,
	}
	if kind == models.DocEnumerators {
		doc, err := s.store.GetEnumerators(ctx, fileName)
		if err != nil {
			return nil, err
		}
		d.Version, d.Locked, d.Enumerators = fmt.Sprint(doc.Version), doc.Locked, doc
	} else {
		doc, err := s.store.Get(ctx, family, fileName)
		if err != nil {
			return nil, err
		}
		d.Version, d.Locked, d.Document = doc.Version.String(), doc.Locked, doc
	}
	if d.Newest, err = s.versions.IsNewest(ctx, family, fileName); err != nil {
		return nil, err
	}
	return d, nil
}

// Raw returns the stored bytes of a document.
func (s *Service) Raw(ctx context.Context, kind models.DocumentKind, fileName string) (*docstore.Raw, error) {
	if _, err := models.FamilyOf(kind, fileName); err != nil {
		return nil, err
	}
	return s.store.Read(ctx, kind, fileName)
}

// Import stores the YAML bytes of a document under fileName. The file name
// decides the family and version; the body is decoded and re-encoded.
func (s *Service) Import(ctx context.Context, kind models.DocumentKind, fileName string, data []byte) (*DocumentDetail, bool, error) {
	if kind == models.DocEnumerators {
		doc, err := parser.DecodeEnumerators(fileName, data)
		if err != nil {
			return nil, false, err
		}
		doc.Locked = false
		return s.PutEnumerators(ctx, fileName, doc, "")
	}
	doc, err := parser.DecodeDocument(fileName, data)
	if err != nil {
		return nil, false, err
	}
	doc.Locked = false
	return s.PutDocument(ctx, kind, fileName, doc, "")
}

// checkWritable loads the stored checksum and lock state of a document
// that is about to be replaced. exists is false when nothing is stored.
// Only the newest version of a family may be written; a write above the
// newest locks the version it supersedes.
func (s *Service) checkWritable(ctx context.Context, kind models.DocumentKind, fileName, ifMatch string) (exists bool, err error) {
	current, err := s.Get(ctx, kind, fileName)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		return false, err
	case current.Locked:
		return true, fmt.Errorf("%w: %s", apperr.ErrDocumentLocked, fileName)
	case ifMatch != "" && ifMatch != current.Checksum:
		return true, apperr.ErrConflict
	case current.Newest:
		return true, nil
	default:
		exists = true
	}

	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return exists, err
	}
	superseded, err := s.versions.AdmitWrite(ctx, family, fileName)
	if err != nil {
		return exists, err
	}
	if superseded != "" {
		s.publish("locked", change(kind, superseded))
	}
	return exists, nil
}

// PutDocument creates or replaces a dictionary or type document. Locked
// documents are never overwritten. ifMatch, when set, must equal the stored
// checksum.
func (s *Service) PutDocument(ctx context.Context, kind models.DocumentKind, fileName string, doc *models.Document, ifMatch string) (*DocumentDetail, bool, error) {
	if kind == models.DocEnumerators {
		return nil, false, fmt.Errorf("%w: enumerators are stored with PutEnumerators", apperr.ErrInvalidOperation)
	}
	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return nil, false, err
	}
	if doc == nil || doc.Root == nil {
		return nil, false, fmt.Errorf("%w: document has no root", apperr.ErrInvalidDocument)
	}
	if !variant.Allowed(variant.Position{Kind: kind, Slot: variant.SlotRoot}, doc.Root.Kind()) {
		return nil, false, fmt.Errorf("%w: root of %s cannot be %s", apperr.ErrInvalidVariantTransition, kind, doc.Root.Kind())
	}
	exists, err := s.checkWritable(ctx, kind, fileName, ifMatch)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.store.Put(ctx, family, fileName, doc); err != nil {
		return nil, false, err
	}
	return s.afterWrite(ctx, kind, fileName, !exists)
}

// PutEnumerators creates or replaces an enumerator document.
func (s *Service) PutEnumerators(ctx context.Context, fileName string, doc *models.EnumeratorDocument, ifMatch string) (*DocumentDetail, bool, error) {
	if _, err := models.ParseEnumeratorFileName(fileName); err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, fmt.Errorf("%w: empty enumerator document", apperr.ErrInvalidDocument)
	}
	exists, err := s.checkWritable(ctx, models.DocEnumerators, fileName, ifMatch)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.store.PutEnumerators(ctx, fileName, doc); err != nil {
		return nil, false, err
	}
	return s.afterWrite(ctx, models.DocEnumerators, fileName, !exists)
}

func (s *Service) afterWrite(ctx context.Context, kind models.DocumentKind, fileName string, created bool) (*DocumentDetail, bool, error) {
	action := "updated"
	if created {
		action = "created"
	}
	s.publish(action, change(kind, fileName))
	d, err := s.Get(ctx, kind, fileName)
	return d, created, err
}

// Delete removes a document. Locked documents cannot be deleted.
func (s *Service) Delete(ctx context.Context, kind models.DocumentKind, fileName string) error {
	current, err := s.Get(ctx, kind, fileName)
	if err != nil {
		return err
	}
	if current.Locked {
		return fmt.Errorf("%w: %s", apperr.ErrDocumentLocked, fileName)
	}
	family, _ := models.FamilyOf(kind, fileName)
	if err := s.store.Delete(ctx, family, fileName); err != nil {
		return err
	}
	s.publish("deleted", change(kind, fileName))
	return nil
}

// ApplyOps runs a batch of tree edits against a stored document and saves
// the result. Nothing is written unless every op succeeds.
func (s *Service) ApplyOps(ctx context.Context, kind models.DocumentKind, fileName string, ops []editor.Op, ifMatch string) (*DocumentDetail, *editor.Result, error) {
	if kind == models.DocEnumerators {
		return nil, nil, fmt.Errorf("%w: enumerator documents have no property tree", apperr.ErrInvalidOperation)
	}
	current, err := s.Get(ctx, kind, fileName)
	if err != nil {
		return nil, nil, err
	}
	if ifMatch != "" && ifMatch != current.Checksum {
		return nil, nil, apperr.ErrConflict
	}
	if current.Locked {
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrDocumentLocked, fileName)
	}
	if !current.Newest {
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrNotNewestVersion, fileName)
	}
	family, _ := models.FamilyOf(kind, fileName)
	session := editor.New(family, current.Document)
	s.logger.Debug("docservice: session opened",
		slog.String("session", session.ID.String()),
		slog.String("path", models.StoragePath(kind, fileName)))

	res, err := session.Apply(ops)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.store.Put(ctx, family, fileName, session.Document()); err != nil {
		return nil, nil, err
	}
	s.publish("updated", change(kind, fileName))
	d, err := s.Get(ctx, kind, fileName)
	if err != nil {
		return nil, nil, err
	}
	return d, res, nil
}

// Lock locks a stored document.
func (s *Service) Lock(ctx context.Context, kind models.DocumentKind, fileName string) (*DocumentDetail, error) {
	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return nil, err
	}
	if err := s.versions.Lock(ctx, family, fileName); err != nil {
		return nil, err
	}
	s.publish("locked", change(kind, fileName))
	return s.Get(ctx, kind, fileName)
}

// Unlock unlocks the newest version of a family.
func (s *Service) Unlock(ctx context.Context, kind models.DocumentKind, fileName string) (*DocumentDetail, error) {
	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return nil, err
	}
	if err := s.versions.Unlock(ctx, family, fileName); err != nil {
		return nil, err
	}
	s.publish("unlocked", change(kind, fileName))
	return s.Get(ctx, kind, fileName)
}

// CreateVersion locks the newest version of a family and stores its clone
// under the next version. For enumerators name and bump are ignored.
func (s *Service) CreateVersion(ctx context.Context, kind models.DocumentKind, name string, bump version.Bump) (*DocumentDetail, error) {
	var fileName string
	if kind == models.DocEnumerators {
		doc, err := s.versions.CreateNewEnumeratorVersion(ctx)
		if err != nil {
			return nil, err
		}
		fileName = doc.FileName
	} else {
		doc, err := s.versions.CreateNewVersion(ctx, models.Family{Kind: kind, Name: name}, bump)
		if err != nil {
			return nil, err
		}
		fileName = doc.FileName
	}
	s.publish("versioned", change(kind, fileName))
	return s.Get(ctx, kind, fileName)
}

// Variants returns the kinds a picker may offer at a position.
func (s *Service) Variants(kind models.DocumentKind, slot variant.Slot) []models.Kind {
	return variant.LegalTargets(variant.Position{Kind: kind, Slot: slot})
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	if s.catalog == nil {
		return []SearchResult{}, nil
	}
	hits, err := s.catalog.Search(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult(h)
	}
	return out, nil
}

// References returns the documents that use the named type, dictionary or
// enumeration.
func (s *Service) References(_ context.Context, name string) ([]Reference, error) {
	if s.catalog == nil {
		return []Reference{}, nil
	}
	hits, err := s.catalog.References(name)
	if err != nil {
		return nil, err
	}
	out := make([]Reference, len(hits))
	for i, h := range hits {
		out[i] = Reference{Path: h.Source, Type: h.Type}
	}
	return out, nil
}

// BSONSchema renders a dictionary or type document as a MongoDB validator.
func (s *Service) BSONSchema(ctx context.Context, kind models.DocumentKind, fileName string) (bson.D, error) {
	if kind == models.DocEnumerators {
		return nil, fmt.Errorf("%w: enumerator documents have no schema", apperr.ErrInvalidOperation)
	}
	family, err := models.FamilyOf(kind, fileName)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, family, fileName)
	if err != nil {
		return nil, err
	}
	return bsonschema.New(&resolver{svc: s}, s.maxDepth).Validator(ctx, doc.Root)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
