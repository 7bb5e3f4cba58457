package auth

import (
	"context"
	"sync"
	"time"
)

// SessionStore tracks issued refresh tokens with a TTL. Injected rather than
// held as package state so multiple service instances can share a backing
// store.
type SessionStore interface {
	// Save registers a refresh token for the user until expiresAt.
	Save(ctx context.Context, token, userID string, expiresAt time.Time) error
	// Consume removes the token and reports whether it was live. Rotation is
	// Consume followed by Save of the replacement.
	Consume(ctx context.Context, token string) (bool, error)
	// RevokeUser drops every session belonging to the user.
	RevokeUser(ctx context.Context, userID string) error
}

// MemorySessionStore is a process-local SessionStore for tests and
// single-instance deployments.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySession)}
}

func (m *MemorySessionStore) Save(ctx context.Context, token, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = memorySession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MemorySessionStore) Consume(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return false, nil
	}
	delete(m.sessions, token)
	if time.Now().After(session.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (m *MemorySessionStore) RevokeUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if session.userID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}
