package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/parser"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path        string
	Kind        string
	Name        string
	Version     string
	Major       int
	Minor       int
	Patch       int
	Enumerators int
	Locked      bool
	Title       string
	Checksum    string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Kind    string
	Name    string
	Title   string
	Snippet string
}

// ReferenceHit is a document that refers to a searched target.
type ReferenceHit struct {
	Source string
	Type   string
}

const documentColumns = `path, kind, name, version, major, minor, patch, enumerators, locked, title, checksum, updated_at`

// UpsertDocument inserts or replaces a document, its FTS entry, and
// references within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, refs []parser.Reference) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (`+documentColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind        = excluded.kind,
			name        = excluded.name,
			version     = excluded.version,
			major       = excluded.major,
			minor       = excluded.minor,
			patch       = excluded.patch,
			enumerators = excluded.enumerators,
			locked      = excluded.locked,
			title       = excluded.title,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at,
			body        = excluded.body
	`, d.Path, d.Kind, d.Name, d.Version, d.Major, d.Minor, d.Patch, d.Enumerators,
		d.Locked, d.Title, d.Checksum, d.UpdatedAt, body)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, d.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(d.Path, r.Target, r.Type); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing references.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetDocument returns the indexed row for path.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns the indexed documents of kind, optionally narrowed
// to one family name, in family then numeric version order.
func (db *DB) ListDocuments(kind, name string) ([]DocumentRow, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE kind = ?`
	args := []any{kind}
	if name != "" {
		q += ` AND name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY name, major, minor, patch, enumerators`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*DocumentRow, error) {
	var d DocumentRow
	err := s.Scan(&d.Path, &d.Kind, &d.Name, &d.Version, &d.Major, &d.Minor, &d.Patch,
		&d.Enumerators, &d.Locked, &d.Title, &d.Checksum, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// References returns every document that refers to target by name.
func (db *DB) References(target string) ([]ReferenceHit, error) {
	rows, err := db.conn.Query(`SELECT source, type FROM refs WHERE target = ? ORDER BY source, type`, target)
	if err != nil {
		return nil, fmt.Errorf("index: references: %w", err)
	}
	defer rows.Close()

	var out []ReferenceHit
	for rows.Next() {
		var h ReferenceHit
		if err := rows.Scan(&h.Source, &h.Type); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
