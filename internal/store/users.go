package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a new user account.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if err := s.ready(); err != nil {
		return err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return fmt.Errorf("user email required")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = "attorney"
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	query := s.db.Rebind(`INSERT INTO users (id, firm_id, email, password_hash, first_name, last_name, role, active, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		user.ID, user.FirmID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.Active,
		user.CreatedAt, user.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail retrieves a user by email, matched case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var user User
	query := s.db.Rebind(`SELECT * FROM users WHERE email = ?`)
	if err := s.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// UserByID retrieves a user by identifier.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var user User
	query := s.db.Rebind(`SELECT * FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// UsersForFirm lists the firm's members ordered by name.
func (s *Store) UsersForFirm(ctx context.Context, firmID string) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	users := []User{}
	query := s.db.Rebind(`SELECT * FROM users WHERE firm_id = ? ORDER BY last_name, first_name, email`)
	if err := s.db.SelectContext(ctx, &users, query, firmID); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// UpdateUser persists profile, role and active-flag changes.
func (s *Store) UpdateUser(ctx context.Context, user *User) error {
	if err := s.ready(); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	query := s.db.Rebind(`UPDATE users SET first_name = ?, last_name = ?, role = ?, active = ?, updated_at = ?
                WHERE id = ? AND firm_id = ?`)
	res, err := s.db.ExecContext(ctx, query, user.FirstName, user.LastName, user.Role, user.Active, user.UpdatedAt, user.ID, user.FirmID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces a user's password hash.
func (s *Store) SetPassword(ctx context.Context, userID, passwordHash string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
