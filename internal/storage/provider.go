// Package storage defines the document file-system abstraction.
package storage

import "github.com/starford/schemakit/internal/models"

// Provider is the interface for document file operations.
type Provider interface {
	// List returns metadata for every .yaml file under dir (relative to the store root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the store root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the store root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the store root).
	Delete(path string) error
}
