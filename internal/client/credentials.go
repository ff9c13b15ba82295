package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"parkpass/internal/entities"
)

// CredentialStore persists the auth token and the signed-in user as a single
// JSON file. Writes happen only at login/logout/clear; reads come from every
// component, so access goes through an RWMutex.
type CredentialStore struct {
	mu   sync.RWMutex
	path string
}

type credentialFile struct {
	Token string         `json:"token"`
	User  *entities.User `json:"user,omitempty"`
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultCredentialPath places the store under the user config dir.
func DefaultCredentialPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "parkpass", "credentials.json"), nil
}

func (s *CredentialStore) read() (*credentialFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &credentialFile{}, nil
		}
		return nil, err
	}
	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupt credential file %s: %w", s.path, err)
	}
	return &f, nil
}

// Token returns the stored auth token, or "" when signed out.
func (s *CredentialStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.read()
	if err != nil {
		return "", err
	}
	return f.Token, nil
}

// User returns the stored user record, or nil when signed out.
func (s *CredentialStore) User() (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.User, nil
}

// Save stores the token and user atomically (write-then-rename).
func (s *CredentialStore) Save(token string, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(credentialFile{Token: token, User: user}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the stored credentials. Clearing an empty store is not an
// error.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}
