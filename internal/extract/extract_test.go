package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTextPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	body := strings.Repeat("The accident report describes the collision in detail. ", 4)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := Text(path, MimePlain)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != body {
		t.Fatalf("got %q", got)
	}
}

func TestTextUnsupportedType(t *testing.T) {
	_, err := Text("whatever.bin", "application/octet-stream")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func writeDocxFixture(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestTextDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.docx")
	writeDocxFixture(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Medical expenses totaled $4,200.</w:t></w:r></w:p>
    <w:p><w:r><w:t>The defendant ran the red light.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	got, err := Text(path, MimeDocx)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(got, "Medical expenses totaled $4,200.") {
		t.Fatalf("missing first paragraph: %q", got)
	}
	if !strings.Contains(got, "The defendant ran the red light.") {
		t.Fatalf("missing second paragraph: %q", got)
	}
	if !strings.Contains(got, ".\nThe defendant") && !strings.Contains(got, ".\n") {
		t.Fatalf("paragraphs not separated: %q", got)
	}
}

func TestTextDocxMissingDocumentPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := zip.NewWriter(f)
	w.Close()
	f.Close()

	if _, err := Text(path, MimeDocx); err == nil {
		t.Fatal("expected error for docx without document.xml")
	}
}

func TestValidTextQuality(t *testing.T) {
	if ValidTextQuality(strings.Repeat("a", 99)) {
		t.Fatal("99 chars should fail the quality floor")
	}
	if !ValidTextQuality(strings.Repeat("a", 100)) {
		t.Fatal("100 chars should pass the quality floor")
	}
	if ValidTextQuality("   \n\t  " + strings.Repeat(" ", 200)) {
		t.Fatal("whitespace-only text should fail")
	}
}
