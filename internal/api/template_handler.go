package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/stenolabs/demandgen/internal/common"
	"github.com/stenolabs/demandgen/internal/store"
	"github.com/stenolabs/demandgen/internal/template"
)

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"variables": template.ListAvailable(),
		"names":     template.CatalogNames(),
	})
}

func (s *Server) handleDefaultSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sections": template.DefaultSections()})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	templates, err := s.store.TemplatesForFirm(r.Context(), claims.FirmID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	content, normalized, ok := s.parseTemplateContent(w, req.Content)
	if !ok {
		return
	}
	tpl := &store.Template{
		FirmID:      claims.FirmID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Content:     normalized,
		IsDefault:   req.IsDefault,
		CreatedBy:   claims.UserID(),
	}
	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if req.IsDefault {
		if err := s.store.SetDefaultTemplate(r.Context(), claims.FirmID, tpl.ID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	common.Logger().Info("template: created", "template", tpl.ID, "firm", claims.FirmID)
	writeJSON(w, http.StatusCreated, templateResponse(tpl, content))
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	tpl, err := s.store.TemplateByID(r.Context(), claims.FirmID, chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	content, _, err := template.ParseContent(tpl.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("stored template unreadable: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, templateResponse(tpl, content))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	tpl, err := s.store.TemplateByID(r.Context(), claims.FirmID, chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	content, normalized, ok := s.parseTemplateContent(w, req.Content)
	if !ok {
		return
	}
	tpl.Name = req.Name
	tpl.Description = req.Description
	tpl.Category = req.Category
	tpl.Content = normalized
	tpl.IsDefault = req.IsDefault
	if err := s.store.UpdateTemplate(r.Context(), tpl, claims.UserID()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if req.IsDefault {
		if err := s.store.SetDefaultTemplate(r.Context(), claims.FirmID, tpl.ID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, templateResponse(tpl, content))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := s.store.DeleteTemplate(r.Context(), claims.FirmID, chi.URLParam(r, "templateID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleDuplicateTemplate clones a template into a fresh draft, version 1,
// never default. Useful as a starting point for firm-specific variants.
func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	var req duplicateTemplateRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	src, err := s.store.TemplateByID(r.Context(), claims.FirmID, chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	content, _, err := template.ParseContent(src.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("stored template unreadable: %w", err))
		return
	}
	name := req.Name
	if name == "" {
		name = src.Name + " (Copy)"
	}
	clone := &store.Template{
		FirmID:      claims.FirmID,
		Name:        name,
		Description: src.Description,
		Category:    src.Category,
		Content:     src.Content,
		CreatedBy:   claims.UserID(),
	}
	if err := s.store.CreateTemplate(r.Context(), clone); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("template: duplicated", "source", src.ID, "template", clone.ID)
	writeJSON(w, http.StatusCreated, templateResponse(clone, content))
}

func (s *Server) handleTemplateVersions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	tpl, err := s.store.TemplateByID(r.Context(), claims.FirmID, chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	versions, err := s.store.TemplateVersions(r.Context(), tpl.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleSetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if err := s.store.SetDefaultTemplate(r.Context(), claims.FirmID, chi.URLParam(r, "templateID")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "default set"})
}

// handleValidateTemplate checks a candidate template structure without
// persisting anything.
func (s *Server) handleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	content, result, err := template.ParseContent(body.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid content: %w", err))
		return
	}
	resp := map[string]any{"valid": result.Valid, "errors": result.Errors}
	if result.Valid {
		names := template.ExtractVariables(content)
		valid, invalid := template.ValidateVariables(names)
		resp["variables"] = names
		resp["valid_variables"] = valid
		resp["invalid_variables"] = invalid
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreviewTemplate substitutes the provided values into the template
// and returns the rendered sections, without persisting anything.
func (s *Server) handlePreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	claims := claimsFrom(r)
	tpl, err := s.store.TemplateByID(r.Context(), claims.FirmID, chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	content, _, err := template.ParseContent(tpl.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("stored template unreadable: %w", err))
		return
	}
	rendered := template.SubstituteVariables(content, req.Values)
	writeJSON(w, http.StatusOK, map[string]any{
		"content":   rendered,
		"remaining": template.ExtractVariables(rendered),
	})
}

// parseTemplateContent validates the structure, refreshes the variable cache
// and returns the normalized serialized form for storage.
func (s *Server) parseTemplateContent(w http.ResponseWriter, raw json.RawMessage) (template.Content, json.RawMessage, bool) {
	content, result, err := template.ParseContent(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid content: %w", err))
		return template.Content{}, nil, false
	}
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "template structure invalid", "details": result.Errors})
		return template.Content{}, nil, false
	}
	content.Variables = template.ExtractVariables(content)
	normalized, err := json.Marshal(content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("serialize content: %w", err))
		return template.Content{}, nil, false
	}
	return content, normalized, true
}

func templateResponse(tpl *store.Template, content template.Content) map[string]any {
	return map[string]any{
		"template":  tpl,
		"variables": content.Variables,
	}
}
