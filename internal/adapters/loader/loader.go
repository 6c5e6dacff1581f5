// Package loader provides document loading adapters.
// Clean Architecture: Adapter implementing ports.DocumentLoader.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path. The document id is derived
// from the content hash, so an unchanged file always maps to the same id and
// the same cached analysis.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return &entities.Document{
		ID:        generateDocID(content),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   string(content),
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// Supports reports whether the loader handles the file at path, by extension.
func (l *TextLoader) Supports(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range l.SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// generateDocID creates a deterministic ID from the document content.
func generateDocID(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:8])
}
