package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestText_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("photosynthesis converts light"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Default().Text(path)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != "photosynthesis converts light" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestText_EmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Default().Text(path)
	if err != nil {
		t.Fatalf("empty document should not error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestText_UnsupportedFormat(t *testing.T) {
	_, err := Default().Text("slides.pptx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestText_ExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "NOTES.TXT")
	if err := os.WriteFile(path, []byte("upper"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Default().Text(path); err != nil {
		t.Errorf("uppercase extension should be handled: %v", err)
	}
}

func TestSupported(t *testing.T) {
	r := Default()
	if !r.Supported("book.pdf") || !r.Supported("book.txt") {
		t.Error("pdf and txt should be supported")
	}
	if r.Supported("book.docx") {
		t.Error("docx should not be supported")
	}
}
