package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store guarded by a single mutex.
// It suits tests and single-instance deployments.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byJTI  map[string]*Session
	byUser map[string]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byJTI:  make(map[string]*Session),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Create(_ context.Context, params CreateParams) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byJTI[params.JTI]; exists {
		return nil, ErrDuplicateJTI
	}
	m.nextID++
	sess := &Session{
		ID:          m.nextID,
		UserID:      params.UserID,
		JTI:         params.JTI,
		Fingerprint: params.Fingerprint,
		ExpiresAt:   params.ExpiresAt,
		UserAgent:   params.UserAgent,
		IP:          params.IP,
		CreatedAt:   params.CreatedAt,
	}
	m.byJTI[sess.JTI] = sess
	set, ok := m.byUser[sess.UserID]
	if !ok {
		set = make(map[string]struct{})
		m.byUser[sess.UserID] = set
	}
	set[sess.JTI] = struct{}{}

	out := *sess
	return &out, nil
}

func (m *MemoryStore) FindByJTI(_ context.Context, jti string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byJTI[jti]
	if !ok {
		return nil, ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (m *MemoryStore) Revoke(_ context.Context, jti string) (RevokeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byJTI[jti]
	if !ok {
		return 0, ErrNotFound
	}
	if sess.Revoked {
		return RevokeAlreadyRevoked, nil
	}
	sess.Revoked = true
	return RevokeApplied, nil
}

func (m *MemoryStore) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := 0
	for jti := range m.byUser[userID] {
		if sess := m.byJTI[jti]; sess != nil && !sess.Revoked {
			sess.Revoked = true
			changed++
		}
	}
	return changed, nil
}

func (m *MemoryStore) Touch(_ context.Context, jti string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byJTI[jti]
	if !ok {
		return ErrNotFound
	}
	sess.LastUsedAt = at
	return nil
}

// PurgeExpired implements Pruner.
func (m *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, sess := range m.byJTI {
		if !sess.Revoked || !sess.ExpiresAt.Before(before) {
			continue
		}
		delete(m.byJTI, jti)
		if set := m.byUser[sess.UserID]; set != nil {
			delete(set, jti)
			if len(set) == 0 {
				delete(m.byUser, sess.UserID)
			}
		}
		removed++
	}
	return removed, nil
}
