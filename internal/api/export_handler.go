package api

import (
	"fmt"
	"net/http"
	"path/filepath"

	chi "github.com/go-chi/chi/v5"

	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/export"
	"github.com/stenolabs/demandgen/internal/store"
)

// handleExportLetter renders a finalized letter to DOCX, records the
// artifact and advances the letter to Exported.
func (s *Server) handleExportLetter(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if letter.Status != store.StatusFinalized && letter.Status != store.StatusExported {
		writeError(w, http.StatusConflict, fmt.Errorf("letter must be finalized before export, current status %q", letter.Status))
		return
	}

	opts := export.Options{
		IncludeLetterhead: req.IncludeLetterhead,
		AttorneyName:      req.AttorneyName,
		AttorneyTitle:     req.AttorneyTitle,
	}
	if req.IncludeLetterhead {
		firm, err := s.store.FirmByID(r.Context(), claims.FirmID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		opts.FirmName = firm.Name
		opts.FirmAddress = firm.Address
		opts.FirmPhone = firm.Phone
		opts.FirmEmail = firm.Email
	}

	path, err := s.exporter.ExportDocxWithOptions(export.LetterData{
		ClientName:    letter.ClientName,
		DefendantName: letter.DefendantName,
		CaseReference: letter.CaseReference,
		IncidentDate:  letter.IncidentDate,
		DemandAmount:  letter.DemandAmount,
		Content:       letter.Content,
		CreatedAt:     letter.CreatedAt,
	}, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("export letter: %w", err))
		return
	}

	record := &store.ExportRecord{
		LetterID:   letter.ID,
		FilePath:   path,
		Format:     "docx",
		ExportedBy: claims.UserID(),
	}
	if err := s.store.RecordExport(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if letter.Status == store.StatusFinalized {
		if letter, err = s.store.UpdateLetterStatus(r.Context(), claims.FirmID, letter.ID, store.StatusExported); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	common.Logger().Info("export: letter exported", "letter", letter.ID, "export", record.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"export": record, "letter": letter})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	records, err := s.store.ExportsForLetter(r.Context(), letter.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": records})
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	record, err := s.store.ExportByID(r.Context(), chi.URLParam(r, "exportID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// the letter lookup doubles as the firm ownership check
	if _, err := s.store.LetterByID(r.Context(), claims.FirmID, record.LetterID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(record.FilePath)))
	http.ServeFile(w, r, record.FilePath)
}
