package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/extract"
	"github.com/stenolabs/demandgen/internal/store"
)

// handleUploadDocument accepts a multipart "file" part, stores it under the
// upload root and extracts its text for later generation calls. Files whose
// text is too thin are rejected so generations never run on empty evidence.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file part: %w", err))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	name := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(header.Filename))
	path := filepath.Join(s.uploadRoot, name)
	out, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}
	size, err := io.Copy(out, file)
	out.Close()
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}

	text, err := extract.Text(path, mimeType)
	if err != nil {
		os.Remove(path)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, extract.ErrUnsupportedType) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, fmt.Errorf("extract text: %w", err))
		return
	}
	if !extract.ValidTextQuality(text) {
		os.Remove(path)
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("document text too short to use as evidence"))
		return
	}

	doc := &store.SourceDocument{
		LetterID:      letter.ID,
		FileName:      header.Filename,
		FilePath:      path,
		MimeType:      mimeType,
		SizeBytes:     size,
		ExtractedText: text,
	}
	if err := s.store.AddSourceDocument(r.Context(), doc); err != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("document: uploaded", "letter", letter.ID, "document", doc.ID, "mime", mimeType, "bytes", size)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	docs, err := s.store.DocumentsForLetter(r.Context(), letter.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleDocumentText returns the extracted text for review, so users can
// check what the generator will actually see.
func (s *Server) handleDocumentText(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	doc, err := s.store.DocumentByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// the letter lookup doubles as the firm ownership check
	if _, err := s.store.LetterByID(r.Context(), claims.FirmID, doc.LetterID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"file_name":   doc.FileName,
		"text":        doc.ExtractedText,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	doc, err := s.store.DocumentByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// the letter lookup doubles as the firm ownership check
	if _, err := s.store.LetterByID(r.Context(), claims.FirmID, doc.LetterID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.DeleteDocument(r.Context(), doc.ID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		common.Logger().Warn("document: remove file", "path", doc.FilePath, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
