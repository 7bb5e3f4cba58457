package store

import (
	"encoding/json"
	"time"
)

// Firm represents a law firm tenant.
type Firm struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// User represents a firm member account.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirmID       string    `db:"firm_id" json:"firm_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Invitation represents a pending firm membership invite.
type Invitation struct {
	ID         string     `db:"id" json:"id"`
	FirmID     string     `db:"firm_id" json:"firm_id"`
	Email      string     `db:"email" json:"email"`
	Role       string     `db:"role" json:"role"`
	Token      string     `db:"token" json:"token"`
	InvitedBy  string     `db:"invited_by" json:"invited_by"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Template represents a reusable demand letter template. Content holds the
// serialized section structure.
type Template struct {
	ID          string          `db:"id" json:"id"`
	FirmID      string          `db:"firm_id" json:"firm_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Content     json.RawMessage `db:"content" json:"content"`
	Version     int             `db:"version" json:"version"`
	IsDefault   bool            `db:"is_default" json:"is_default"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time      `db:"deleted_at" json:"-"`
}

// TemplateVersion is a historical snapshot of a template's content.
type TemplateVersion struct {
	ID         string          `db:"id" json:"id"`
	TemplateID string          `db:"template_id" json:"template_id"`
	Version    int             `db:"version" json:"version"`
	Content    json.RawMessage `db:"content" json:"content"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Letter represents a demand letter case file.
type Letter struct {
	ID            string     `db:"id" json:"id"`
	FirmID        string     `db:"firm_id" json:"firm_id"`
	TemplateID    *string    `db:"template_id" json:"template_id,omitempty"`
	ClientName    string     `db:"client_name" json:"client_name"`
	DefendantName string     `db:"defendant_name" json:"defendant_name"`
	CaseReference string     `db:"case_reference" json:"case_reference"`
	IncidentDate  *time.Time `db:"incident_date" json:"incident_date,omitempty"`
	DemandAmount  *float64   `db:"demand_amount" json:"demand_amount,omitempty"`
	Injuries      string     `db:"injuries" json:"injuries"`
	Damages       string     `db:"damages" json:"damages"`
	Content       string     `db:"content" json:"content"`
	Status        string     `db:"status" json:"status"`
	Version       int        `db:"version" json:"version"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// LetterVersion is a historical snapshot of a letter's content.
type LetterVersion struct {
	ID        string    `db:"id" json:"id"`
	LetterID  string    `db:"letter_id" json:"letter_id"`
	Version   int       `db:"version" json:"version"`
	Content   string    `db:"content" json:"content"`
	Note      string    `db:"note" json:"note"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SourceDocument represents an uploaded evidence file attached to a letter.
type SourceDocument struct {
	ID            string    `db:"id" json:"id"`
	LetterID      string    `db:"letter_id" json:"letter_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	FilePath      string    `db:"file_path" json:"-"`
	MimeType      string    `db:"mime_type" json:"mime_type"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	ExtractedText string    `db:"extracted_text" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// GenerationRecord is the usage ledger entry for one generation attempt.
type GenerationRecord struct {
	ID           string    `db:"id" json:"id"`
	LetterID     string    `db:"letter_id" json:"letter_id"`
	Provider     string    `db:"provider" json:"provider"`
	Model        string    `db:"model" json:"model"`
	InputTokens  int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens int       `db:"output_tokens" json:"output_tokens"`
	CostUSD      float64   `db:"cost_usd" json:"cost_usd"`
	DurationMs   int64     `db:"duration_ms" json:"duration_ms"`
	Status       string    `db:"status" json:"status"`
	ErrorKind    string    `db:"error_kind" json:"error_kind,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExportRecord tracks a generated export artifact on disk.
type ExportRecord struct {
	ID         string    `db:"id" json:"id"`
	LetterID   string    `db:"letter_id" json:"letter_id"`
	FilePath   string    `db:"file_path" json:"file_path"`
	Format     string    `db:"format" json:"format"`
	ExportedBy string    `db:"exported_by" json:"exported_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StatusCount pairs a letter status with how many letters hold it.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// DashboardStats aggregates firm-wide activity for the dashboard view.
type DashboardStats struct {
	TotalLetters      int           `json:"total_letters"`
	LettersByStatus   []StatusCount `json:"letters_by_status"`
	TotalTemplates    int           `json:"total_templates"`
	TotalUsers        int           `json:"total_users"`
	TotalInputTokens  int           `json:"total_input_tokens"`
	TotalOutputTokens int           `json:"total_output_tokens"`
	TotalCostUSD      float64       `json:"total_cost_usd"`
	RecentLetters     []Letter      `json:"recent_letters"`
}
