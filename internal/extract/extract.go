package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/stenolabs/demandgen/internal/common/telemetry"
)

// minTextLength is the floor below which extracted text is considered too
// thin to ground a generation on.
const minTextLength = 100

// Supported upload MIME types.
const (
	MimePDF   = "application/pdf"
	MimeDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeWord  = "application/msword"
	MimePlain = "text/plain"
)

// ErrUnsupportedType is returned for MIME types outside the upload whitelist.
var ErrUnsupportedType = errors.New("extract: unsupported file type")

// Text pulls plain text out of an uploaded source document based on its
// declared MIME type.
func Text(path, mimeType string) (string, error) {
	switch mimeType {
	case MimePDF:
		telemetry.RecordExtraction("pdf")
		return fromPDF(path)
	case MimeDocx, MimeWord:
		telemetry.RecordExtraction("docx")
		return fromDocx(path)
	case MimePlain:
		telemetry.RecordExtraction("text")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

// ValidTextQuality reports whether extracted text is substantial enough to
// use as generation evidence.
func ValidTextQuality(text string) bool {
	return len(strings.TrimSpace(text)) >= minTextLength
}

func fromPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// fromDocx reads word/document.xml out of the OOXML package and collects the
// run text, inserting newlines at paragraph boundaries.
func fromDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", errors.New("extract: docx has no word/document.xml")
	}
	reader, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("open docx body: %w", err)
	}
	defer reader.Close()
	return docxText(reader)
}

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml: %w", err)
		}
		switch tok := token.(type) {
		case xml.CharData:
			b.Write(tok)
		case xml.EndElement:
			// paragraph and line breaks both separate runs of text
			if tok.Name.Local == "p" || tok.Name.Local == "br" {
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}
