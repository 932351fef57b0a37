// Package docstore persists schema documents as YAML files laid out as
// <kind>/<fileName> and keeps the catalog index in step with every write.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/checksum"
	"github.com/starford/schemakit/internal/index"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/parser"
	"github.com/starford/schemakit/internal/storage"
	"github.com/starford/schemakit/internal/version"
)

// Verify *Store satisfies version.Adapter at compile time.
var _ version.Adapter = (*Store)(nil)

// Store is the file-backed persistence adapter.
type Store struct {
	files   storage.Provider
	catalog index.Catalog
	logger  *slog.Logger
}

// New returns a store over files. catalog may be nil.
func New(files storage.Provider, catalog index.Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{files: files, catalog: catalog, logger: logger}
}

// Raw is the stored bytes of one document.
type Raw struct {
	Path     string
	Data     []byte
	Checksum string
}

// Read returns the stored bytes of a document.
func (s *Store) Read(_ context.Context, kind models.DocumentKind, fileName string) (*Raw, error) {
	p := models.StoragePath(kind, fileName)
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return &Raw{Path: p, Data: data, Checksum: checksum.Sum(data)}, nil
}

// Get loads a dictionary or type document.
func (s *Store) Get(_ context.Context, family models.Family, fileName string) (*models.Document, error) {
	if err := checkFamily(family, fileName); err != nil {
		return nil, err
	}
	data, err := s.read(models.StoragePath(family.Kind, fileName))
	if err != nil {
		return nil, err
	}
	return parser.DecodeDocument(fileName, data)
}

// Put stores doc under fileName and returns the stored form as read back
// from disk.
func (s *Store) Put(_ context.Context, family models.Family, fileName string, doc *models.Document) (*models.Document, error) {
	if err := checkFamily(family, fileName); err != nil {
		return nil, err
	}
	out := *doc
	out.FileName = fileName
	data, err := parser.EncodeDocument(&out)
	if err != nil {
		return nil, err
	}
	p := models.StoragePath(family.Kind, fileName)
	if err := s.write(p, data); err != nil {
		return nil, err
	}
	stored, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return parser.DecodeDocument(fileName, stored)
}

// GetEnumerators loads an enumerator document.
func (s *Store) GetEnumerators(_ context.Context, fileName string) (*models.EnumeratorDocument, error) {
	if err := checkFamily(models.EnumeratorFamily, fileName); err != nil {
		return nil, err
	}
	data, err := s.read(models.StoragePath(models.DocEnumerators, fileName))
	if err != nil {
		return nil, err
	}
	return parser.DecodeEnumerators(fileName, data)
}

// PutEnumerators stores an enumerator document and returns its stored form.
func (s *Store) PutEnumerators(_ context.Context, fileName string, doc *models.EnumeratorDocument) (*models.EnumeratorDocument, error) {
	if err := checkFamily(models.EnumeratorFamily, fileName); err != nil {
		return nil, err
	}
	out := *doc
	out.FileName = fileName
	data, err := parser.EncodeEnumerators(&out)
	if err != nil {
		return nil, err
	}
	p := models.StoragePath(models.DocEnumerators, fileName)
	if err := s.write(p, data); err != nil {
		return nil, err
	}
	stored, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return parser.DecodeEnumerators(fileName, stored)
}

// Delete removes a stored document of any kind.
func (s *Store) Delete(_ context.Context, family models.Family, fileName string) error {
	if err := checkFamily(family, fileName); err != nil {
		return err
	}
	p := models.StoragePath(family.Kind, fileName)
	if err := s.files.Delete(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
		}
		return apperr.Persistence("delete", p, err)
	}
	if s.catalog != nil {
		if err := s.catalog.DeleteDocument(p); err != nil {
			s.logger.Warn("docstore: unindex failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return nil
}

// List returns every stored version of family, oldest first.
func (s *Store) List(_ context.Context, family models.Family) ([]models.Listing, error) {
	listings, err := s.listKind(family.Kind)
	if err != nil {
		return nil, err
	}
	out := listings[:0]
	for _, l := range listings {
		if l.Name == family.Name {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListKind returns every stored document of kind grouped by family name,
// each family oldest first.
func (s *Store) ListKind(_ context.Context, kind models.DocumentKind) ([]models.Listing, error) {
	return s.listKind(kind)
}

func (s *Store) listKind(kind models.DocumentKind) ([]models.Listing, error) {
	metas, err := s.files.List(string(kind))
	if err != nil {
		return nil, apperr.Persistence("list", string(kind), err)
	}
	type entry struct {
		listing models.Listing
		order   models.ConfigVersion
	}
	var entries []entry
	for _, m := range metas {
		dir, fileName := path.Split(m.Path)
		if strings.TrimSuffix(dir, "/") != string(kind) {
			continue
		}
		e := entry{listing: models.Listing{
			FileName:  fileName,
			Checksum:  m.Checksum,
			UpdatedAt: m.UpdatedAt,
		}}
		if kind == models.DocEnumerators {
			v, err := models.ParseEnumeratorFileName(fileName)
			if err != nil {
				s.logger.Debug("docstore: skipping file", slog.String("path", m.Path))
				continue
			}
			e.listing.Name = models.EnumeratorFamilyName
			e.listing.Version = fmt.Sprint(v)
			e.order = models.ConfigVersion{Major: v}
		} else {
			name, v, err := models.ParseConfigFileName(fileName)
			if err != nil {
				s.logger.Debug("docstore: skipping file", slog.String("path", m.Path))
				continue
			}
			e.listing.Name = name
			e.listing.Version = v.String()
			e.order = v
		}
		e.listing.Locked = s.lockedFlag(m)
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].listing.Name != entries[j].listing.Name {
			return entries[i].listing.Name < entries[j].listing.Name
		}
		return entries[i].order.Compare(entries[j].order) < 0
	})
	out := make([]models.Listing, len(entries))
	for i, e := range entries {
		out[i] = e.listing
	}
	return out, nil
}

// lockedFlag reads the lock flag from the catalog when its row is current
// and from the file otherwise.
func (s *Store) lockedFlag(m models.FileMetadata) bool {
	if s.catalog != nil {
		if row, err := s.catalog.GetDocument(m.Path); err == nil && row.Checksum == m.Checksum {
			return row.Locked
		}
	}
	data, err := s.files.Read(m.Path)
	if err != nil {
		return false
	}
	res, err := parser.Parse(m.Path, data)
	if err != nil {
		return false
	}
	return res.Locked
}

func (s *Store) read(p string) ([]byte, error) {
	data, err := s.files.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, p)
		}
		return nil, apperr.Persistence("read", p, err)
	}
	return data, nil
}

func (s *Store) write(p string, data []byte) error {
	if err := s.files.Write(p, data); err != nil {
		return apperr.Persistence("write", p, err)
	}
	if s.catalog != nil {
		if _, err := index.IndexFile(s.catalog, p, data, time.Now()); err != nil {
			s.logger.Warn("docstore: index failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return nil
}

// checkFamily rejects file names that do not belong to family.
func checkFamily(family models.Family, fileName string) error {
	got, err := models.FamilyOf(family.Kind, fileName)
	if err != nil {
		return err
	}
	if got != family {
		return fmt.Errorf("%w: %s does not belong to %s", apperr.ErrInvalidOperation, fileName, family)
	}
	return nil
}
