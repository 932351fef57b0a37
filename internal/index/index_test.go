package index

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/parser"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "schemakit-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func row(path, name string, major, minor, patch, enums int) DocumentRow {
	return DocumentRow{
		Path:        path,
		Kind:        "dictionaries",
		Name:        name,
		Major:       major,
		Minor:       minor,
		Patch:       patch,
		Enumerators: enums,
		Checksum:    path,
		UpdatedAt:   time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count), "documents table missing")
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM refs`).Scan(&count), "refs table missing")
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	r := row("dictionaries/customer.0.1.0.0.yaml", "customer", 0, 1, 0, 0)
	r.Checksum = "abc123"
	require.NoError(t, db.UpsertDocument(r, "Customer record", []parser.Reference{{Target: "address", Type: parser.RefDocument}}))
	cs, err := db.GetChecksum(r.Path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cs)

	got, err := db.GetDocument(r.Path)
	require.NoError(t, err)
	assert.Equal(t, "customer", got.Name)
	assert.Equal(t, 1, got.Minor)

	_, err = db.GetDocument("dictionaries/missing.0.0.0.0.yaml")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListDocumentsNumericOrder(t *testing.T) {
	db := testDB(t)
	for _, r := range []DocumentRow{
		row("dictionaries/s.0.10.0.0.yaml", "s", 0, 10, 0, 0),
		row("dictionaries/s.0.9.0.0.yaml", "s", 0, 9, 0, 0),
		row("dictionaries/s.0.9.0.12.yaml", "s", 0, 9, 0, 12),
		row("dictionaries/t.0.0.0.1.yaml", "t", 0, 0, 0, 1),
	} {
		require.NoError(t, db.UpsertDocument(r, "", nil))
	}

	rows, err := db.ListDocuments("dictionaries", "s")
	require.NoError(t, err)
	var paths []string
	for _, r := range rows {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"dictionaries/s.0.9.0.0.yaml", "dictionaries/s.0.9.0.12.yaml", "dictionaries/s.0.10.0.0.yaml"}, paths)

	all, _ := db.ListDocuments("dictionaries", "")
	assert.Len(t, all, 4)
	types, _ := db.ListDocuments("types", "")
	assert.Empty(t, types)
}

func TestReferences(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(row("dictionaries/a.0.0.0.0.yaml", "a", 0, 0, 0, 0), "", []parser.Reference{
		{Target: "word", Type: parser.RefType},
		{Target: "status", Type: parser.RefEnumeration},
	})
	_ = db.UpsertDocument(row("dictionaries/c.0.0.0.0.yaml", "c", 0, 0, 0, 0), "", []parser.Reference{
		{Target: "word", Type: parser.RefType},
	})

	hits, err := db.References("word")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "dictionaries/a.0.0.0.0.yaml", hits[0].Source)
	assert.Equal(t, parser.RefType, hits[0].Type)
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	r := row("dictionaries/del.0.0.0.0.yaml", "del", 0, 0, 0, 0)
	_ = db.UpsertDocument(r, "body", []parser.Reference{{Target: "target", Type: parser.RefDocument}})

	require.NoError(t, db.DeleteDocument(r.Path))
	cs, _ := db.GetChecksum(r.Path)
	assert.Empty(t, cs, "deleted document still has a checksum")
	hits, _ := db.References("target")
	assert.Empty(t, hits, "references should be removed with the document")
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	r := row("dictionaries/up.0.0.0.0.yaml", "up", 0, 0, 0, 0)
	r.Checksum = "1"
	_ = db.UpsertDocument(r, "old body", []parser.Reference{{Target: "x", Type: parser.RefDocument}})
	r.Checksum = "2"
	r.Locked = true
	_ = db.UpsertDocument(r, "new body", []parser.Reference{{Target: "y", Type: parser.RefDocument}})

	got, _ := db.GetDocument(r.Path)
	assert.Equal(t, "2", got.Checksum)
	assert.True(t, got.Locked)
	hits, _ := db.References("x")
	assert.Empty(t, hits, "old reference should be removed on upsert")
	hits, _ = db.References("y")
	assert.Len(t, hits, 1, "new reference should exist")
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("types/nonexistent.0.0.0.0.yaml")
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	r := row("dictionaries/s.0.0.0.0.yaml", "s", 0, 0, 0, 0)
	r.Title = "Search Me"
	_ = db.UpsertDocument(r, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, r.Path, results[0].Path)
	assert.Equal(t, "s", results[0].Name)
}

func TestIndexFileParsesDocument(t *testing.T) {
	db := testDB(t)
	data := []byte("root:\n  description: Order\n  type: object\n  properties:\n    total:\n      type: custom\n      custom_type: money\n")
	res, err := IndexFile(db, "dictionaries/order.1.0.0.0.yaml", data, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Order", res.Title)

	got, err := db.GetDocument("dictionaries/order.1.0.0.0.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Major)
	assert.Equal(t, "1.0.0.0", got.Version)
	hits, _ := db.References("money")
	assert.Len(t, hits, 1, "expected money reference")

	_, err = IndexFile(db, "dictionaries/broken.yaml", data, time.Time{})
	assert.ErrorIs(t, err, apperr.ErrInvalidDocument)
}
