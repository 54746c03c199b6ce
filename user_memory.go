package authcore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserProvider is a process-local [UserProvider] for tests, load
// harnesses and single-node demos.
type MemoryUserProvider struct {
	mu         sync.RWMutex
	now        func() time.Time
	byID       map[string]UserRecord
	byExternal map[string]string
	byEmail    map[string]string
}

// NewMemoryUserProvider returns an empty provider. A nil now uses time.Now.
func NewMemoryUserProvider(now func() time.Time) *MemoryUserProvider {
	if now == nil {
		now = time.Now
	}
	return &MemoryUserProvider{
		now:        now,
		byID:       make(map[string]UserRecord),
		byExternal: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (p *MemoryUserProvider) GetUserByExternalID(_ context.Context, externalID string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byExternal[externalID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *MemoryUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (p *MemoryUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	externalID := strings.TrimSpace(input.ExternalID)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.byExternal[externalID]; taken {
		return UserRecord{}, ErrAccountExists
	}
	if _, taken := p.byEmail[email]; taken && email != "" {
		return UserRecord{}, ErrAccountExists
	}

	now := p.now().UTC()
	rec := UserRecord{
		UserID:       uuid.NewString(),
		ExternalID:   externalID,
		Name:         input.Name,
		Email:        email,
		PasswordHash: input.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.byID[rec.UserID] = rec
	p.byExternal[externalID] = rec.UserID
	if email != "" {
		p.byEmail[email] = rec.UserID
	}
	return rec, nil
}

func (p *MemoryUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	rec.PasswordHash = newHash
	rec.UpdatedAt = p.now().UTC()
	p.byID[userID] = rec
	return nil
}
