package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPageCountMissingFile(t *testing.T) {
	if _, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Expected error for missing PDF")
	}
}

func TestPageCountNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := PageCount(path); err == nil {
		t.Error("Expected error for non-PDF content")
	}
}

func TestRenderPageMissingFile(t *testing.T) {
	if _, err := RenderPage(filepath.Join(t.TempDir(), "missing.pdf"), t.TempDir(), 1, 0); err == nil {
		t.Error("Expected error for missing PDF")
	}
}
