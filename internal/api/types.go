package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type registerRequest struct {
	FirmName  string `json:"firm_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type acceptInvitationRequest struct {
	Token     string `json:"token" validate:"required"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type templateRequest struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"max=80"`
	Content     json.RawMessage `json:"content" validate:"required"`
	IsDefault   bool            `json:"is_default"`
}

type previewRequest struct {
	Values map[string]string `json:"values"`
}

type letterRequest struct {
	TemplateID    *string    `json:"template_id"`
	ClientName    string     `json:"client_name" validate:"required,min=2"`
	DefendantName string     `json:"defendant_name"`
	CaseReference string     `json:"case_reference"`
	IncidentDate  *time.Time `json:"incident_date"`
	DemandAmount  *float64   `json:"demand_amount" validate:"omitempty,gt=0"`
	Injuries      string     `json:"injuries"`
	Damages       string     `json:"damages"`
}

type letterContentRequest struct {
	Content string `json:"content" validate:"required"`
	Note    string `json:"note"`
}

type letterNoteRequest struct {
	Note string `json:"note"`
}

type letterStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type exportRequest struct {
	IncludeLetterhead bool   `json:"include_letterhead"`
	AttorneyName      string `json:"attorney_name"`
	AttorneyTitle     string `json:"attorney_title"`
}

type invitationRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=20,dive,email"`
	Role   string   `json:"role" validate:"required,oneof=admin attorney paralegal"`
}

type duplicateTemplateRequest struct {
	Name string `json:"name"`
}

type selfUpdateRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type updateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"omitempty,oneof=admin attorney paralegal"`
	Active    *bool  `json:"active"`
}

type firmRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// decodeRequest parses the JSON body into dst and runs struct validation.
// Handlers bail out when it reports false; the error response is already
// written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return false
	}
	return true
}
