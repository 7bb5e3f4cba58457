package export

import (
	"archive/zip"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stenolabs/demandgen/internal/extract"
)

func readDocumentXML(t *testing.T, path string) string {
	t.Helper()
	archive, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	defer archive.Close()
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		r, err := file.Open()
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read entry: %v", err)
		}
		return string(data)
	}
	t.Fatal("document.xml not found")
	return ""
}

func sampleLetter() LetterData {
	amount := 75000.0
	created := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	return LetterData{
		ClientName:    "Jane Smith",
		DefendantName: "Acme Corp",
		CaseReference: "PI-2026-001",
		DemandAmount:  &amount,
		CreatedAt:     created,
		Content:       "<p>Dear Claims Representative,</p><p>Our client suffered <strong>serious injuries</strong> in the incident.</p><p>We demand $75,000.00 &amp; costs.</p>",
	}
}

func TestExportDocxWritesValidPackage(t *testing.T) {
	exporter := NewExporter(t.TempDir())
	path, err := exporter.ExportDocx(sampleLetter())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(path, ".docx") {
		t.Fatalf("unexpected file name %q", path)
	}

	doc := readDocumentXML(t, path)
	for _, want := range []string{
		"Re: Demand for Settlement - Jane Smith v. Acme Corp",
		"Case Reference: PI-2026-001",
		"Demand Amount: $75,000.00",
		"Dear Claims Representative,",
		"February 10, 2026",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document.xml missing %q", want)
		}
	}
	if !strings.Contains(doc, "<w:rPr><w:b/></w:rPr>") {
		t.Fatal("bold run markup missing")
	}
	if !strings.Contains(doc, "serious injuries") {
		t.Fatal("bold text missing")
	}
}

func TestExportDocxEscapesMarkup(t *testing.T) {
	letter := sampleLetter()
	letter.Content = "<p>Smith & Sons v. O'Brien <em>LLC</em></p>"
	exporter := NewExporter(t.TempDir())
	path, err := exporter.ExportDocx(letter)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc := readDocumentXML(t, path)
	if !strings.Contains(doc, "Smith &amp; Sons") {
		t.Fatal("ampersand not escaped")
	}
	if strings.Contains(doc, "<em>") {
		t.Fatal("stray HTML tag leaked into document.xml")
	}
}

func TestExportDocxRoundTripsThroughExtractor(t *testing.T) {
	exporter := NewExporter(t.TempDir())
	path, err := exporter.ExportDocx(sampleLetter())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	text, err := extract.Text(path, extract.MimeDocx)
	if err != nil {
		t.Fatalf("re-extract: %v", err)
	}
	if !strings.Contains(text, "Our client suffered serious injuries in the incident.") {
		t.Fatalf("round-tripped text missing body: %q", text)
	}
}

func TestExportDocxLetterhead(t *testing.T) {
	exporter := NewExporter(t.TempDir())
	path, err := exporter.ExportDocxWithOptions(sampleLetter(), Options{
		IncludeLetterhead: true,
		FirmName:          "Harper & Lane LLP",
		FirmAddress:       "100 Main St, Springfield",
		AttorneyName:      "Alex Harper",
		AttorneyTitle:     "Managing Partner",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc := readDocumentXML(t, path)
	for _, want := range []string{"Harper &amp; Lane LLP", "100 Main St, Springfield", "Alex Harper", "Managing Partner", `<w:jc w:val="center"/>`} {
		if !strings.Contains(doc, want) {
			t.Fatalf("letterhead missing %q", want)
		}
	}
}
