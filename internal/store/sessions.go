package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionStore is the database-backed implementation of auth.SessionStore,
// letting refresh tokens survive restarts and be shared across instances.
type SessionStore struct {
	store *Store
}

// Sessions returns the refresh-token session store backed by this database.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

func (ss *SessionStore) Save(ctx context.Context, token, userID string, expiresAt time.Time) error {
	if ss == nil || ss.store == nil {
		return errors.New("session store not initialised")
	}
	query := ss.store.db.Rebind(`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := ss.store.db.ExecContext(ctx, query, token, userID, expiresAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Consume redeems a refresh token. The delete decides liveness in one
// statement, so concurrent redemptions of the same token yield exactly one
// winner.
func (ss *SessionStore) Consume(ctx context.Context, token string) (bool, error) {
	if ss == nil || ss.store == nil {
		return false, errors.New("session store not initialised")
	}
	del := ss.store.db.Rebind(`DELETE FROM sessions WHERE token = ? AND expires_at > ?`)
	res, err := ss.store.db.ExecContext(ctx, del, token, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return true, nil
	}
	// clear an expired leftover so dead rows do not accumulate
	purge := ss.store.db.Rebind(`DELETE FROM sessions WHERE token = ?`)
	if _, err := ss.store.db.ExecContext(ctx, purge, token); err != nil {
		return false, fmt.Errorf("purge session: %w", err)
	}
	return false, nil
}

func (ss *SessionStore) RevokeUser(ctx context.Context, userID string) error {
	if ss == nil || ss.store == nil {
		return errors.New("session store not initialised")
	}
	query := ss.store.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`)
	if _, err := ss.store.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
