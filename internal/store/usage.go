package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordGeneration appends one generation attempt to the usage ledger.
func (s *Store) RecordGeneration(ctx context.Context, rec *GenerationRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO generation_records (id, letter_id, provider, model, input_tokens, output_tokens,
                        cost_usd, duration_ms, status, error_kind, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.LetterID, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.DurationMs, rec.Status, rec.ErrorKind, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert generation record: %w", err)
	}
	return nil
}

// GenerationsForLetter lists a letter's generation attempts, newest first.
func (s *Store) GenerationsForLetter(ctx context.Context, letterID string) ([]GenerationRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	records := []GenerationRecord{}
	query := s.db.Rebind(`SELECT * FROM generation_records WHERE letter_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &records, query, letterID); err != nil {
		return nil, fmt.Errorf("select generation records: %w", err)
	}
	return records, nil
}

// RecordExport appends one export artifact to the ledger.
func (s *Store) RecordExport(ctx context.Context, rec *ExportRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Format == "" {
		rec.Format = "docx"
	}
	rec.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO export_records (id, letter_id, file_path, format, exported_by, created_at)
                VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.LetterID, rec.FilePath, rec.Format, rec.ExportedBy, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert export record: %w", err)
	}
	return nil
}

// ExportsForLetter lists a letter's export artifacts, newest first.
func (s *Store) ExportsForLetter(ctx context.Context, letterID string) ([]ExportRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	records := []ExportRecord{}
	query := s.db.Rebind(`SELECT * FROM export_records WHERE letter_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &records, query, letterID); err != nil {
		return nil, fmt.Errorf("select export records: %w", err)
	}
	return records, nil
}

// ExportByID retrieves one export artifact record.
func (s *Store) ExportByID(ctx context.Context, id string) (*ExportRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var rec ExportRecord
	query := s.db.Rebind(`SELECT * FROM export_records WHERE id = ?`)
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &rec, nil
}

// Stats aggregates firm-wide dashboard figures.
func (s *Store) Stats(ctx context.Context, firmID string) (*DashboardStats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	stats := &DashboardStats{LettersByStatus: []StatusCount{}}

	byStatus := s.db.Rebind(`SELECT status, COUNT(*) AS count FROM letters WHERE firm_id = ? GROUP BY status ORDER BY status`)
	if err := s.db.SelectContext(ctx, &stats.LettersByStatus, byStatus, firmID); err != nil {
		return nil, fmt.Errorf("select letter status counts: %w", err)
	}
	for _, sc := range stats.LettersByStatus {
		stats.TotalLetters += sc.Count
	}

	templates := s.db.Rebind(`SELECT COUNT(*) FROM templates WHERE firm_id = ?`)
	if err := s.db.GetContext(ctx, &stats.TotalTemplates, templates, firmID); err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}
	users := s.db.Rebind(`SELECT COUNT(*) FROM users WHERE firm_id = ?`)
	if err := s.db.GetContext(ctx, &stats.TotalUsers, users, firmID); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	usage := s.db.Rebind(`SELECT
                        COALESCE(SUM(g.input_tokens), 0) AS input_tokens,
                        COALESCE(SUM(g.output_tokens), 0) AS output_tokens,
                        COALESCE(SUM(g.cost_usd), 0) AS cost_usd
                FROM generation_records g
                INNER JOIN letters l ON l.id = g.letter_id
                WHERE l.firm_id = ?`)
	var totals struct {
		InputTokens  int     `db:"input_tokens"`
		OutputTokens int     `db:"output_tokens"`
		CostUSD      float64 `db:"cost_usd"`
	}
	if err := s.db.GetContext(ctx, &totals, usage, firmID); err != nil {
		return nil, fmt.Errorf("sum generation usage: %w", err)
	}
	stats.TotalInputTokens = totals.InputTokens
	stats.TotalOutputTokens = totals.OutputTokens
	stats.TotalCostUSD = totals.CostUSD

	recent, err := s.LettersForFirm(ctx, firmID, LetterListOptions{Limit: 5})
	if err != nil {
		return nil, err
	}
	stats.RecentLetters = recent
	return stats, nil
}
