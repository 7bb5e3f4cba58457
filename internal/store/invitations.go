package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// invitationTTL is how long an invite link stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

// CreateInvitation inserts a pending invite with a fresh token.
func (s *Store) CreateInvitation(ctx context.Context, inv *Invitation) error {
	if err := s.ready(); err != nil {
		return err
	}
	inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))
	if inv.Email == "" {
		return fmt.Errorf("invitation email required")
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Token == "" {
		inv.Token = uuid.NewString()
	}
	if inv.Role == "" {
		inv.Role = "attorney"
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(invitationTTL)
	}
	query := s.db.Rebind(`INSERT INTO invitations (id, firm_id, email, role, token, invited_by, expires_at, accepted_at, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query,
		inv.ID, inv.FirmID, inv.Email, inv.Role, inv.Token,
		inv.InvitedBy, inv.ExpiresAt, inv.AcceptedAt, inv.CreatedAt); err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// InvitationByToken retrieves an invite by its redemption token.
func (s *Store) InvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var inv Invitation
	query := s.db.Rebind(`SELECT * FROM invitations WHERE token = ?`)
	if err := s.db.GetContext(ctx, &inv, query, token); err != nil {
		return nil, mapNotFound(err)
	}
	return &inv, nil
}

// AcceptInvitation marks an invite redeemed. It fails if the invite was
// already accepted.
func (s *Store) AcceptInvitation(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE invitations SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL`)
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingInvitationForEmail finds an unaccepted, unexpired invite for the
// email within the firm, if any.
func (s *Store) PendingInvitationForEmail(ctx context.Context, firmID, email string) (*Invitation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var inv Invitation
	query := s.db.Rebind(`SELECT * FROM invitations
                WHERE firm_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?
                ORDER BY created_at DESC LIMIT 1`)
	if err := s.db.GetContext(ctx, &inv, query, firmID, strings.ToLower(strings.TrimSpace(email)), time.Now().UTC()); err != nil {
		return nil, mapNotFound(err)
	}
	return &inv, nil
}

// RefreshInvitation rotates the token and extends the expiry of a pending
// invite, invalidating any previously sent link.
func (s *Store) RefreshInvitation(ctx context.Context, firmID, id string) (*Invitation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	expires := time.Now().UTC().Add(invitationTTL)
	query := s.db.Rebind(`UPDATE invitations SET token = ?, expires_at = ?
                WHERE id = ? AND firm_id = ? AND accepted_at IS NULL`)
	res, err := s.db.ExecContext(ctx, query, token, expires, id, firmID)
	if err != nil {
		return nil, fmt.Errorf("refresh invitation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	var inv Invitation
	get := s.db.Rebind(`SELECT * FROM invitations WHERE id = ?`)
	if err := s.db.GetContext(ctx, &inv, get, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &inv, nil
}

// InvitationsForFirm lists a firm's invites, newest first.
func (s *Store) InvitationsForFirm(ctx context.Context, firmID string) ([]Invitation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	invites := []Invitation{}
	query := s.db.Rebind(`SELECT * FROM invitations WHERE firm_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &invites, query, firmID); err != nil {
		return nil, fmt.Errorf("select invitations: %w", err)
	}
	return invites, nil
}

// DeleteInvitation removes a pending invite.
func (s *Store) DeleteInvitation(ctx context.Context, firmID, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query := s.db.Rebind(`DELETE FROM invitations WHERE id = ? AND firm_id = ?`)
	res, err := s.db.ExecContext(ctx, query, id, firmID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
