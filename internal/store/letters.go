package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Letter lifecycle statuses.
const (
	StatusDraft     = "Draft"
	StatusGenerated = "Generated"
	StatusInReview  = "In Review"
	StatusFinalized = "Finalized"
	StatusExported  = "Exported"
)

// statusOrder defines the forward direction of the letter lifecycle.
var statusOrder = map[string]int{
	StatusDraft:     0,
	StatusGenerated: 1,
	StatusInReview:  2,
	StatusFinalized: 3,
	StatusExported:  4,
}

// ValidStatus reports whether the given status is part of the lifecycle.
func ValidStatus(status string) bool {
	_, ok := statusOrder[status]
	return ok
}

// CreateLetter inserts a new draft letter.
func (s *Store) CreateLetter(ctx context.Context, letter *Letter) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(letter.ClientName) == "" {
		return fmt.Errorf("letter client name required")
	}
	if letter.ID == "" {
		letter.ID = uuid.NewString()
	}
	if letter.Status == "" {
		letter.Status = StatusDraft
	}
	letter.Version = 1
	now := time.Now().UTC()
	letter.CreatedAt = now
	letter.UpdatedAt = now
	query := s.db.Rebind(`INSERT INTO letters (id, firm_id, template_id, client_name, defendant_name, case_reference,
                        incident_date, demand_amount, injuries, damages, content, status, version, created_by, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		letter.ID, letter.FirmID, letter.TemplateID, letter.ClientName, letter.DefendantName, letter.CaseReference,
		letter.IncidentDate, letter.DemandAmount, letter.Injuries, letter.Damages, letter.Content,
		letter.Status, letter.Version, letter.CreatedBy, letter.CreatedAt, letter.UpdatedAt); err != nil {
		return fmt.Errorf("insert letter: %w", err)
	}
	return nil
}

// LetterByID retrieves a letter scoped to a firm.
func (s *Store) LetterByID(ctx context.Context, firmID, id string) (*Letter, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var letter Letter
	query := s.db.Rebind(`SELECT * FROM letters WHERE id = ? AND firm_id = ?`)
	if err := s.db.GetContext(ctx, &letter, query, id, firmID); err != nil {
		return nil, mapNotFound(err)
	}
	return &letter, nil
}

// LetterListOptions narrows and pages a letter listing.
type LetterListOptions struct {
	Status string
	Query  string
	Limit  int
	Offset int
}

// LettersForFirm lists the firm's letters, most recently updated first.
// Query matches client name, defendant name or case reference.
func (s *Store) LettersForFirm(ctx context.Context, firmID string, opts LetterListOptions) ([]Letter, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := `SELECT * FROM letters WHERE firm_id = ?`
	args := []any{firmID}
	if status := strings.TrimSpace(opts.Status); status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + q + "%"
		query += ` AND (client_name LIKE ? OR defendant_name LIKE ? OR case_reference LIKE ?)`
		args = append(args, pattern, pattern, pattern)
	}
	query += ` ORDER BY updated_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}
	letters := []Letter{}
	if err := s.db.SelectContext(ctx, &letters, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select letters: %w", err)
	}
	return letters, nil
}

// UpdateLetterDetails persists the case fields without touching content.
func (s *Store) UpdateLetterDetails(ctx context.Context, letter *Letter) error {
	if err := s.ready(); err != nil {
		return err
	}
	letter.UpdatedAt = time.Now().UTC()
	query := s.db.Rebind(`UPDATE letters SET template_id = ?, client_name = ?, defendant_name = ?, case_reference = ?,
                        incident_date = ?, demand_amount = ?, injuries = ?, damages = ?, updated_at = ?
                WHERE id = ? AND firm_id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		letter.TemplateID, letter.ClientName, letter.DefendantName, letter.CaseReference,
		letter.IncidentDate, letter.DemandAmount, letter.Injuries, letter.Damages, letter.UpdatedAt,
		letter.ID, letter.FirmID)
	if err != nil {
		return fmt.Errorf("update letter: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLetterContent replaces the letter body, bumps the version and
// snapshots the new content into the version history.
func (s *Store) UpdateLetterContent(ctx context.Context, firmID, id, content, note, updatedBy string) (*Letter, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	letter, err := s.LetterByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	letter.Content = content
	letter.Version++
	letter.UpdatedAt = time.Now().UTC()
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		update := tx.Rebind(`UPDATE letters SET content = ?, version = ?, updated_at = ? WHERE id = ? AND firm_id = ?`)
		if _, err := tx.ExecContext(ctx, update, letter.Content, letter.Version, letter.UpdatedAt, id, firmID); err != nil {
			return fmt.Errorf("update letter content: %w", err)
		}
		insert := tx.Rebind(`INSERT INTO letter_versions (id, letter_id, version, content, note, created_by, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), id, letter.Version, content, note, updatedBy, letter.UpdatedAt); err != nil {
			return fmt.Errorf("insert letter version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return letter, nil
}

// UpdateLetterStatus advances a letter through its lifecycle. Moving backward
// is allowed only one step (e.g. reopening a finalized letter for review).
func (s *Store) UpdateLetterStatus(ctx context.Context, firmID, id, status string) (*Letter, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	next, ok := statusOrder[status]
	if !ok {
		return nil, fmt.Errorf("unknown letter status %q", status)
	}
	letter, err := s.LetterByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	current := statusOrder[letter.Status]
	if next < current-1 {
		return nil, fmt.Errorf("cannot move letter from %q back to %q", letter.Status, status)
	}
	letter.Status = status
	letter.UpdatedAt = time.Now().UTC()
	query := s.db.Rebind(`UPDATE letters SET status = ?, updated_at = ? WHERE id = ? AND firm_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, letter.Status, letter.UpdatedAt, id, firmID); err != nil {
		return nil, fmt.Errorf("update letter status: %w", err)
	}
	return letter, nil
}

// DeleteLetter removes a letter and cascades to its versions, documents and
// usage records.
func (s *Store) DeleteLetter(ctx context.Context, firmID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`DELETE FROM letters WHERE id = ? AND firm_id = ?`)
	res, err := s.db.ExecContext(ctx, query, id, firmID)
	if err != nil {
		return fmt.Errorf("delete letter: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SnapshotLetter records the letter's current content as a new version
// without changing the content itself.
func (s *Store) SnapshotLetter(ctx context.Context, firmID, id, note, createdBy string) (*LetterVersion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	letter, err := s.LetterByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	version := &LetterVersion{
		ID:        uuid.NewString(),
		LetterID:  letter.ID,
		Version:   letter.Version + 1,
		Content:   letter.Content,
		Note:      note,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		bump := tx.Rebind(`UPDATE letters SET version = ?, updated_at = ? WHERE id = ? AND firm_id = ?`)
		if _, err := tx.ExecContext(ctx, bump, version.Version, version.CreatedAt, id, firmID); err != nil {
			return fmt.Errorf("bump letter version: %w", err)
		}
		insert := tx.Rebind(`INSERT INTO letter_versions (id, letter_id, version, content, note, created_by, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert, version.ID, version.LetterID, version.Version, version.Content, version.Note, version.CreatedBy, version.CreatedAt); err != nil {
			return fmt.Errorf("insert letter version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// LetterVersionByID retrieves one snapshot of a letter.
func (s *Store) LetterVersionByID(ctx context.Context, letterID, versionID string) (*LetterVersion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var version LetterVersion
	query := s.db.Rebind(`SELECT * FROM letter_versions WHERE id = ? AND letter_id = ?`)
	if err := s.db.GetContext(ctx, &version, query, versionID, letterID); err != nil {
		return nil, mapNotFound(err)
	}
	return &version, nil
}

// LetterVersions lists a letter's content snapshots, newest first.
func (s *Store) LetterVersions(ctx context.Context, letterID string) ([]LetterVersion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	versions := []LetterVersion{}
	query := s.db.Rebind(`SELECT * FROM letter_versions WHERE letter_id = ? ORDER BY version DESC`)
	if err := s.db.SelectContext(ctx, &versions, query, letterID); err != nil {
		return nil, fmt.Errorf("select letter versions: %w", err)
	}
	return versions, nil
}
