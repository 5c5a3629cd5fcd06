// Package extract converts source documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for document types no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor converts one document type into plain text. An empty result
// is valid: it means the document had no extractable text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Default returns a Registry handling txt and pdf documents.
func Default() *Registry {
	r := NewRegistry()
	r.Register("txt", &PlainText{})
	r.Register("pdf", &PDF{})
	return r
}

// Register binds an extractor to a lowercase extension without the dot.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Supported reports whether the path's extension has an extractor.
func (r *Registry) Supported(path string) bool {
	_, ok := r.extractors[extension(path)]
	return ok
}

// Text extracts plain text from the document at path.
func (r *Registry) Text(path string) (string, error) {
	ext := extension(path)
	e, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	text, err := e.Extract(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return text, nil
}

func extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
