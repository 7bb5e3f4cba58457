package export

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/stenolabs/demandgen/internal/ai"
	"github.com/stenolabs/demandgen/internal/common/telemetry"
)

// Options controls the letterhead block prepended to an exported letter.
type Options struct {
	IncludeLetterhead bool
	FirmName          string
	FirmAddress       string
	FirmPhone         string
	FirmEmail         string
	AttorneyName      string
	AttorneyTitle     string
}

// LetterData is the exportable view of a finalized letter.
type LetterData struct {
	ClientName    string
	DefendantName string
	CaseReference string
	IncidentDate  *time.Time
	DemandAmount  *float64
	Content       string
	CreatedAt     time.Time
}

// Exporter writes DOCX files for finalized letters into a target directory.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// ExportDocx renders the letter to a Word document and returns the file path.
func (e *Exporter) ExportDocx(letter LetterData) (string, error) {
	return e.ExportDocxWithOptions(letter, Options{})
}

func (e *Exporter) ExportDocxWithOptions(letter LetterData, opts Options) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	paragraphs := buildParagraphs(letter, opts)
	name := fmt.Sprintf("demand-letter-%s-%d.docx", slug(letter.ClientName), time.Now().UnixNano())
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entries := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
		"word/document.xml":   documentXML(paragraphs),
	}
	for entryName, body := range entries {
		entry, err := w.Create(entryName)
		if err != nil {
			return "", fmt.Errorf("create zip entry %s: %w", entryName, err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			return "", fmt.Errorf("write zip entry %s: %w", entryName, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close docx: %w", err)
	}
	telemetry.RecordExport()
	return path, nil
}

type run struct {
	text string
	bold bool
}

type paragraph struct {
	runs     []run
	centered bool
}

func buildParagraphs(letter LetterData, opts Options) []paragraph {
	var out []paragraph

	if opts.IncludeLetterhead && opts.FirmName != "" {
		out = append(out, paragraph{runs: []run{{text: opts.FirmName, bold: true}}, centered: true})
		for _, line := range []string{opts.FirmAddress, opts.FirmPhone, opts.FirmEmail} {
			if line != "" {
				out = append(out, paragraph{runs: []run{{text: line}}, centered: true})
			}
		}
		out = append(out, paragraph{})
	}

	out = append(out, paragraph{runs: []run{{text: letter.CreatedAt.Format("January 2, 2006")}}})
	out = append(out, paragraph{})

	re := fmt.Sprintf("Re: Demand for Settlement - %s v. %s", letter.ClientName, letter.DefendantName)
	out = append(out, paragraph{runs: []run{{text: re, bold: true}}})
	if letter.CaseReference != "" {
		out = append(out, paragraph{runs: []run{{text: "Case Reference: " + letter.CaseReference}}})
	}
	if letter.DemandAmount != nil {
		out = append(out, paragraph{runs: []run{{text: "Demand Amount: " + ai.FormatUSD(*letter.DemandAmount)}}})
	}
	out = append(out, paragraph{})

	out = append(out, contentParagraphs(letter.Content)...)

	if opts.AttorneyName != "" {
		out = append(out, paragraph{}, paragraph{runs: []run{{text: "Sincerely,"}}}, paragraph{})
		out = append(out, paragraph{runs: []run{{text: opts.AttorneyName, bold: true}}})
		if opts.AttorneyTitle != "" {
			out = append(out, paragraph{runs: []run{{text: opts.AttorneyTitle}}})
		}
	}
	return out
}

var (
	breakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	openTags  = regexp.MustCompile(`(?i)<p>|<div>`)
	boldSpan  = regexp.MustCompile(`(?is)<strong>(.*?)</strong>|<b>(.*?)</b>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
)

// contentParagraphs flattens the letter body, which may carry light HTML from
// the rich-text editor, into paragraphs with bold runs preserved.
func contentParagraphs(content string) []paragraph {
	clean := breakTags.ReplaceAllString(content, "\n")
	clean = openTags.ReplaceAllString(clean, "")

	var out []paragraph
	for _, line := range strings.Split(clean, "\n") {
		if strings.TrimSpace(anyTag.ReplaceAllString(line, "")) == "" {
			continue
		}
		out = append(out, paragraph{runs: lineRuns(line)})
	}
	return out
}

func lineRuns(line string) []run {
	var runs []run
	last := 0
	for _, match := range boldSpan.FindAllStringSubmatchIndex(line, -1) {
		if match[0] > last {
			if text := anyTag.ReplaceAllString(line[last:match[0]], ""); text != "" {
				runs = append(runs, run{text: text})
			}
		}
		inner := ""
		if match[2] >= 0 {
			inner = line[match[2]:match[3]]
		} else if match[4] >= 0 {
			inner = line[match[4]:match[5]]
		}
		if text := anyTag.ReplaceAllString(inner, ""); text != "" {
			runs = append(runs, run{text: text, bold: true})
		}
		last = match[1]
	}
	if last < len(line) {
		if text := anyTag.ReplaceAllString(line[last:], ""); strings.TrimSpace(text) != "" {
			runs = append(runs, run{text: text})
		}
	}
	return runs
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

func documentXML(paragraphs []paragraph) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString("<w:p>")
		if p.centered {
			b.WriteString(`<w:pPr><w:jc w:val="center"/></w:pPr>`)
		}
		for _, r := range p.runs {
			b.WriteString("<w:r>")
			if r.bold {
				b.WriteString("<w:rPr><w:b/></w:rPr>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			b.WriteString(escapeXML(r.text))
			b.WriteString("</w:t></w:r>")
		}
		b.WriteString("</w:p>")
	}
	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.String()
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "letter"
	}
	return s
}
