// Package oskeyring stores the Gitea admin password in the operating
// system keyring so it does not have to live in the environment file.
package oskeyring

import (
	"errors"
	"fmt"
	"sync"

	keyringlib "github.com/zalando/go-keyring"
)

// ServiceName is the keyring service entry used for all giteactl secrets.
const ServiceName = "giteactl"

// AdminPasswordKey is the keyring user entry holding the admin password.
const AdminPasswordKey = "admin-password"

// ErrNotFound is returned by Get when no secret is stored.
var ErrNotFound = errors.New("secret not found in keyring")

// Service abstracts the OS keyring so commands can run against an
// in-memory implementation in tests.
type Service interface {
	// Get retrieves a secret, returning ErrNotFound when absent.
	Get(service, user string) (string, error)
	// Set stores a secret.
	Set(service, user, secret string) error
	// Delete removes a secret. Deleting an absent secret is not an error.
	Delete(service, user string) error
}

// DefaultService talks to the real OS keyring via zalando/go-keyring.
type DefaultService struct{}

func NewDefaultService() *DefaultService {
	return &DefaultService{}
}

func (s *DefaultService) Get(service, user string) (string, error) {
	secret, err := keyringlib.Get(service, user)
	if err != nil {
		if errors.Is(err, keyringlib.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get secret from OS keyring: %w", err)
	}
	return secret, nil
}

func (s *DefaultService) Set(service, user, secret string) error {
	return keyringlib.Set(service, user, secret)
}

func (s *DefaultService) Delete(service, user string) error {
	err := keyringlib.Delete(service, user)
	if errors.Is(err, keyringlib.ErrNotFound) {
		return nil
	}
	return err
}

var _ Service = (*DefaultService)(nil)

// MemoryService is an in-memory Service for tests.
type MemoryService struct {
	mu    sync.RWMutex
	store map[string]map[string]string // service -> user -> secret
}

func NewMemoryService() *MemoryService {
	return &MemoryService{store: make(map[string]map[string]string)}
}

func (s *MemoryService) Get(service, user string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if users, ok := s.store[service]; ok {
		if secret, ok := users[user]; ok {
			return secret, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryService) Set(service, user, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[service]; !ok {
		s.store[service] = make(map[string]string)
	}
	s.store[service][user] = secret
	return nil
}

func (s *MemoryService) Delete(service, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if users, ok := s.store[service]; ok {
		delete(users, user)
		if len(users) == 0 {
			delete(s.store, service)
		}
	}
	return nil
}

var _ Service = (*MemoryService)(nil)
