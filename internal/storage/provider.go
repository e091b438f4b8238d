// Package storage defines the draft inbox file-system abstraction.
package storage

import "github.com/starford/gaceta/internal/models"

// Provider is the interface for inbox file operations. Paths are relative
// to the inbox root and use forward slashes.
type Provider interface {
	// List returns metadata for every file under dir whose path matches the
	// doublestar pattern. Hidden files are skipped.
	List(dir, pattern string) ([]models.DraftMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
