package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/stenolabs/demandgen/internal/ai"
	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/store"
	"github.com/stenolabs/demandgen/internal/template"
)

func (s *Server) handleListLetters(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	query := r.URL.Query()
	opts := store.LetterListOptions{
		Status: query.Get("status"),
		Query:  query.Get("q"),
	}
	if raw := query.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			opts.Offset = offset
		}
	}
	letters, err := s.store.LettersForFirm(r.Context(), claims.FirmID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"letters": letters})
}

// editableLetter rejects content mutation once a letter is finalized. The
// letter has to be reopened (status back to In Review) first.
func editableLetter(w http.ResponseWriter, letter *store.Letter) bool {
	if letter.Status == store.StatusFinalized || letter.Status == store.StatusExported {
		writeError(w, http.StatusConflict, fmt.Errorf("letter is %s and cannot be edited", letter.Status))
		return false
	}
	return true
}

func (s *Server) handleCreateLetter(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	if req.TemplateID != nil {
		if _, err := s.store.TemplateByID(r.Context(), claims.FirmID, *req.TemplateID); err != nil {
			writeError(w, statusFor(err), fmt.Errorf("template: %w", err))
			return
		}
	}
	letter := &store.Letter{
		FirmID:        claims.FirmID,
		TemplateID:    req.TemplateID,
		ClientName:    req.ClientName,
		DefendantName: req.DefendantName,
		CaseReference: req.CaseReference,
		IncidentDate:  req.IncidentDate,
		DemandAmount:  req.DemandAmount,
		Injuries:      req.Injuries,
		Damages:       req.Damages,
		CreatedBy:     claims.UserID(),
	}
	if err := s.store.CreateLetter(r.Context(), letter); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("letter: created", "letter", letter.ID, "firm", claims.FirmID)
	writeJSON(w, http.StatusCreated, letter)
}

func (s *Server) handleGetLetter(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) handleUpdateLetter(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !editableLetter(w, letter) {
		return
	}
	letter.TemplateID = req.TemplateID
	letter.ClientName = req.ClientName
	letter.DefendantName = req.DefendantName
	letter.CaseReference = req.CaseReference
	letter.IncidentDate = req.IncidentDate
	letter.DemandAmount = req.DemandAmount
	letter.Injuries = req.Injuries
	letter.Damages = req.Damages
	if err := s.store.UpdateLetterDetails(r.Context(), letter); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) handleDeleteLetter(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := s.store.DeleteLetter(r.Context(), claims.FirmID, chi.URLParam(r, "letterID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUpdateLetterContent(w http.ResponseWriter, r *http.Request) {
	var req letterContentRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !editableLetter(w, letter) {
		return
	}
	letter, err = s.store.UpdateLetterContent(r.Context(), claims.FirmID, letter.ID, req.Content, req.Note, claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

// handleSnapshotLetter records the current content as an explicit version,
// typically before a round of manual edits.
func (s *Server) handleSnapshotLetter(w http.ResponseWriter, r *http.Request) {
	var req letterNoteRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	version, err := s.store.SnapshotLetter(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"), req.Note, claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

// handleRestoreLetterVersion copies a historical snapshot back onto the
// letter. The restore itself is versioned, so nothing is lost.
func (s *Server) handleRestoreLetterVersion(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !editableLetter(w, letter) {
		return
	}
	version, err := s.store.LetterVersionByID(r.Context(), letter.ID, chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	letter, err = s.store.UpdateLetterContent(r.Context(), claims.FirmID, letter.ID,
		version.Content, fmt.Sprintf("restored version %d", version.Version), claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	common.Logger().Info("letter: version restored", "letter", letter.ID, "restored_version", version.Version)
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) handleUpdateLetterStatus(w http.ResponseWriter, r *http.Request) {
	var req letterStatusRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	if !store.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", req.Status))
		return
	}
	// Finalized and Exported carry legal weight; reaching them through a raw
	// status move needs the same role as /finalize and /export.
	if (req.Status == store.StatusFinalized || req.Status == store.StatusExported) &&
		claims.Role != "admin" && claims.Role != "attorney" {
		writeError(w, http.StatusForbidden, fmt.Errorf("attorney role required to move a letter to %s", req.Status))
		return
	}
	letter, err := s.store.UpdateLetterStatus(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"), req.Status)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) handleLetterVersions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	versions, err := s.store.LetterVersions(r.Context(), letter.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleLetterGenerations(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	records, err := s.store.GenerationsForLetter(r.Context(), letter.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": records})
}

// handleGenerateLetter assembles the case data, source document texts and
// template guide, runs one generation attempt, records the outcome in the
// usage ledger and, on success, snapshots the content and advances the
// letter to Generated.
func (s *Server) handleGenerateLetter(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !editableLetter(w, letter) {
		return
	}

	docs, err := s.store.DocumentsForLetter(r.Context(), letter.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sourceTexts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ExtractedText != "" {
			sourceTexts = append(sourceTexts, doc.ExtractedText)
		}
	}
	if len(sourceTexts) == 0 {
		writeError(w, http.StatusConflict, fmt.Errorf("letter has no source documents with extracted text; upload evidence first"))
		return
	}

	templateText := ""
	if letter.TemplateID != nil {
		tpl, err := s.store.TemplateByID(r.Context(), claims.FirmID, *letter.TemplateID)
		if err != nil {
			writeError(w, statusFor(err), fmt.Errorf("template: %w", err))
			return
		}
		content, _, err := template.ParseContent(tpl.Content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("stored template unreadable: %w", err))
			return
		}
		templateText = content.FlattenText()
	}

	data := ai.LetterData{
		ClientName:    letter.ClientName,
		DefendantName: letter.DefendantName,
		IncidentDate:  letter.IncidentDate,
		DemandAmount:  letter.DemandAmount,
		CaseReference: letter.CaseReference,
		Injuries:      letter.Injuries,
		Damages:       letter.Damages,
	}

	start := time.Now()
	result, genErr := s.generator.Generate(r.Context(), data, sourceTexts, templateText)
	record := &store.GenerationRecord{
		LetterID:   letter.ID,
		Provider:   s.providerName(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if genErr != nil {
		record.Status = "failed"
		record.ErrorKind = errorKind(genErr)
		if err := s.store.RecordGeneration(r.Context(), record); err != nil {
			logger.Error("letter: record failed generation", "letter", letter.ID, "error", err)
		}
		writeError(w, generationStatus(genErr), genErr)
		return
	}

	record.Status = "succeeded"
	record.Model = result.Model
	record.InputTokens = int(result.InputTokens)
	record.OutputTokens = int(result.OutputTokens)
	record.CostUSD = ai.CalculateCost(result.InputTokens, result.OutputTokens)
	if err := s.store.RecordGeneration(r.Context(), record); err != nil {
		logger.Error("letter: record generation", "letter", letter.ID, "error", err)
	}

	letter, err = s.store.UpdateLetterContent(r.Context(), claims.FirmID, letter.ID, result.Content, "generated", claims.UserID())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if letter.Status == store.StatusDraft {
		letter, err = s.store.UpdateLetterStatus(r.Context(), claims.FirmID, letter.ID, store.StatusGenerated)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}

	logger.Info("letter: generated", "letter", letter.ID, "model", result.Model,
		"input_tokens", result.InputTokens, "output_tokens", result.OutputTokens)
	writeJSON(w, http.StatusOK, map[string]any{
		"letter": letter,
		"usage": map[string]any{
			"model":          result.Model,
			"input_tokens":   result.InputTokens,
			"output_tokens":  result.OutputTokens,
			"estimated_cost": record.CostUSD,
		},
	})
}

func (s *Server) handleFinalizeLetter(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	letter, err := s.store.LetterByID(r.Context(), claims.FirmID, chi.URLParam(r, "letterID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if letter.Content == "" {
		writeError(w, http.StatusConflict, fmt.Errorf("letter has no content to finalize"))
		return
	}
	letter, err = s.store.UpdateLetterStatus(r.Context(), claims.FirmID, letter.ID, store.StatusFinalized)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	common.Logger().Info("letter: finalized", "letter", letter.ID)
	writeJSON(w, http.StatusOK, letter)
}

func (s *Server) providerName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// errorKind buckets a generation failure for the usage ledger.
func errorKind(err error) string {
	var cfg *ai.ConfigurationError
	var quality *ai.ContentQualityError
	var svc *ai.ServiceError
	switch {
	case errors.As(err, &cfg):
		return "configuration"
	case errors.As(err, &quality):
		return "quality"
	case errors.Is(err, ai.ErrTimeout):
		return "timeout"
	case errors.As(err, &svc):
		return "service"
	default:
		return "unknown"
	}
}

// generationStatus maps the generation error taxonomy onto HTTP statuses.
func generationStatus(err error) int {
	switch errorKind(err) {
	case "configuration":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	case "quality", "service":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
