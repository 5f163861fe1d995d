package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage is the local key-value store the session lives in.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Keys used in Storage. The current person is stored per user under PersonKey.
const (
	KeyToken        = "token"
	KeyUser         = "user"
	personKeyPrefix = "tc_person_"
	guestPersonKey  = personKeyPrefix + "guest"
)

// PersonKey is the storage key holding the current person for email.
// An empty email maps to the shared guest key.
func PersonKey(email string) string {
	if email == "" {
		return guestPersonKey
	}
	return personKeyPrefix + email
}

// UserInfo is the identity echoed by signup and login.
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// DisplayName prefers the username and falls back to the email.
func (u UserInfo) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// SessionState is the typed view over Storage: token, user and the
// per-user current person.
type SessionState struct {
	store Storage
}

func NewSessionState(store Storage) *SessionState {
	return &SessionState{store: store}
}

func (s *SessionState) Token() string {
	token, _ := s.store.Get(KeyToken)
	return token
}

// User returns the stored identity; ok is false when none is stored or it
// carries no email.
func (s *SessionState) User() (UserInfo, bool) {
	raw, ok := s.store.Get(KeyUser)
	if !ok {
		return UserInfo{}, false
	}
	var u UserInfo
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.Email == "" {
		return UserInfo{}, false
	}
	return u, true
}

// Authenticated reports whether both a token and an identity are stored.
func (s *SessionState) Authenticated() bool {
	_, ok := s.User()
	return ok && s.Token() != ""
}

func (s *SessionState) SetSession(token string, user UserInfo) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(KeyToken, token); err != nil {
		return err
	}
	return s.store.Set(KeyUser, string(raw))
}

// Clear drops the token and identity. Person selections are left in place so
// they come back on the next login.
func (s *SessionState) Clear() error {
	if err := s.store.Remove(KeyToken); err != nil {
		return err
	}
	return s.store.Remove(KeyUser)
}

func (s *SessionState) personKey() string {
	u, _ := s.User()
	return PersonKey(u.Email)
}

func (s *SessionState) CurrentPerson() string {
	name, _ := s.store.Get(s.personKey())
	return name
}

func (s *SessionState) SetCurrentPerson(name string) error {
	return s.store.Set(s.personKey(), name)
}

func (s *SessionState) ClearCurrentPerson() error {
	return s.store.Remove(s.personKey())
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileStorage persists values as a flat JSON object. Every write rewrites
// the file through a temp file and rename.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFileStorage loads path, treating a missing file as empty.
func OpenFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(data, &fs.values); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return fs, nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.flush()
}

func (f *FileStorage) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.flush()
}

func (f *FileStorage) flush() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
