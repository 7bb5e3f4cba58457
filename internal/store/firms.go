package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateFirm inserts a new firm, assigning an identifier when missing.
func (s *Store) CreateFirm(ctx context.Context, firm *Firm) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(firm.Name) == "" {
		return fmt.Errorf("firm name required")
	}
	if firm.ID == "" {
		firm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	firm.CreatedAt = now
	firm.UpdatedAt = now
	query := s.db.Rebind(`INSERT INTO firms (id, name, address, phone, email, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, firm.ID, firm.Name, firm.Address, firm.Phone, firm.Email, firm.CreatedAt, firm.UpdatedAt); err != nil {
		return fmt.Errorf("insert firm: %w", err)
	}
	return nil
}

// FirmByID retrieves a firm by identifier.
func (s *Store) FirmByID(ctx context.Context, id string) (*Firm, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var firm Firm
	query := s.db.Rebind(`SELECT * FROM firms WHERE id = ?`)
	if err := s.db.GetContext(ctx, &firm, query, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &firm, nil
}

// UpdateFirm persists mutable firm profile fields.
func (s *Store) UpdateFirm(ctx context.Context, firm *Firm) error {
	if err := s.ready(); err != nil {
		return err
	}
	firm.UpdatedAt = time.Now().UTC()
	query := s.db.Rebind(`UPDATE firms SET name = ?, address = ?, phone = ?, email = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, firm.Name, firm.Address, firm.Phone, firm.Email, firm.UpdatedAt, firm.ID)
	if err != nil {
		return fmt.Errorf("update firm: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
