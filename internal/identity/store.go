package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"placementprep/internal/types"
)

// Store sentinels. Providers map these to a Kind.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrProfileNotFound  = errors.New("profile not found")
)

// Account is a local email/password credential
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// AccountStore persists local credentials. Emails are compared case-insensitively.
type AccountStore interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore persists profile documents keyed by user id
type ProfileStore interface {
	Put(ctx context.Context, userID string, profile types.Profile) error
	Get(ctx context.Context, userID string) (types.Profile, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryAccountStore keeps accounts in process memory
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byEmail map[string]Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{byEmail: make(map[string]Account)}
}

func (s *MemoryAccountStore) Create(_ context.Context, account Account) error {
	key := normalizeEmail(account.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return ErrDuplicateAccount
	}
	account.Email = key
	account.PasswordHash = append([]byte(nil), account.PasswordHash...)
	s.byEmail[key] = account
	return nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *MemoryAccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, account := range s.byEmail {
		if account.ID == id {
			delete(s.byEmail, email)
			return nil
		}
	}
	return nil
}

// MemoryProfileStore keeps profiles in process memory
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]types.Profile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]types.Profile)}
}

func (s *MemoryProfileStore) Put(_ context.Context, userID string, profile types.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = profile
	return nil
}

func (s *MemoryProfileStore) Get(_ context.Context, userID string) (types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return types.Profile{}, ErrProfileNotFound
	}
	return profile, nil
}
