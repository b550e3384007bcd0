package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPagesImages(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "scan-1.jpg")
	second := filepath.Join(dir, "scan-2.png")
	if err := os.WriteFile(first, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("png bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := LoadPages([]string{first, second}, nil)
	if err != nil {
		t.Fatalf("LoadPages failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Name != "scan-1.jpg" || pages[1].Name != "scan-2.png" {
		t.Errorf("page order not preserved: %s, %s", pages[0].Name, pages[1].Name)
	}
	if string(pages[0].Data) != "jpeg bytes" {
		t.Errorf("page data mismatch: %q", pages[0].Data)
	}
}

func TestLoadPagesEmptyInput(t *testing.T) {
	if _, err := LoadPages(nil, nil); err == nil {
		t.Fatal("expected error for empty input list")
	}
}

func TestLoadPagesMissingFile(t *testing.T) {
	if _, err := LoadPages([]string{"/nonexistent/scan.jpg"}, nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadPagesUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPages([]string{path}, nil); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
