package index

import "github.com/starford/schemakit/internal/parser"

// Catalog defines the document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Catalog interface {
	UpsertDocument(d DocumentRow, body string, refs []parser.Reference) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(kind, name string) ([]DocumentRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	References(target string) ([]ReferenceHit, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
