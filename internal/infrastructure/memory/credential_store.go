package memory

import (
	"context"
	"sync"

	"sponsor-portal/internal/domain"
)

// CredentialStore keeps credentials in process memory. Used for local runs
// and tests; everything is lost on restart.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]domain.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{credentials: make(map[string]domain.Credential)}
}

func (s *CredentialStore) Load(_ context.Context, sessionID string) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[sessionID]
	if !ok || cred == "" {
		return "", domain.ErrNotFound
	}
	return cred, nil
}

func (s *CredentialStore) Save(_ context.Context, sessionID string, credential domain.Credential) error {
	if sessionID == "" || credential == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.credentials[sessionID] = credential
	s.mu.Unlock()
	return nil
}

func (s *CredentialStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[sessionID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.credentials, sessionID)
	return nil
}

func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials)
}
