// Package editor holds editing sessions: the per-request context that owns
// one open document and applies batches of tree edits to it atomically.
package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/tree"
	"github.com/starford/schemakit/internal/variant"
)

// Result reports what a batch changed.
type Result struct {
	Events []tree.Event `json:"events"`
	// Added lists the keys generated by add_child ops, in op order.
	Added []string `json:"added,omitempty"`
}

// Session owns one open document. Operations on a session are serialized.
type Session struct {
	ID     uuid.UUID
	Family models.Family

	mu        sync.Mutex
	doc       *models.Document
	observers []tree.Observer
}

// New opens a session on a private copy of doc.
func New(family models.Family, doc *models.Document) *Session {
	return &Session{
		ID:     uuid.New(),
		Family: family,
		doc:    doc.Clone(),
	}
}

// Document returns a copy of the session's current document.
func (s *Session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Subscribe registers fn to receive every event of successful batches.
func (s *Session) Subscribe(fn tree.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Variants returns the kinds the node at path may switch to.
func (s *Session) Variants(path models.Path) []models.Kind {
	return variant.LegalTargets(tree.New(s.Family.Kind, nil).Position(path))
}

// Apply runs ops in order against a copy of the document. The copy replaces
// the session document only when every op succeeds; otherwise the error of
// the first failing op is returned and the document is unchanged.
func (s *Session) Apply(ops []Op) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.IsLocked() {
		return nil, apperr.ErrDocumentLocked
	}

	res := &Result{Events: []tree.Event{}}
	work := s.doc.Clone()
	e := tree.New(s.Family.Kind, func(ev tree.Event) { res.Events = append(res.Events, ev) })
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("%w: op %d: %v", apperr.ErrInvalidOperation, i, err)
		}
		key, err := op.apply(e, work)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
		if key != "" {
			res.Added = append(res.Added, key)
		}
	}

	s.doc = work
	for _, ev := range res.Events {
		for _, fn := range s.observers {
			fn(ev)
		}
	}
	return res, nil
}
