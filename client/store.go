package client

import (
	"os"
	"path/filepath"
	"sync"
)

// credentialFile is the fixed file name a FileStore keeps the token in.
const credentialFile = "token"

// CredentialStore persists the session token between runs. Get returns
// an empty string, not an error, when no credential is stored.
type CredentialStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// FileStore keeps the token in a single file under dir, created with
// owner-only permissions.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, credentialFile)
}

func (s *FileStore) Get() (string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func (s *FileStore) Set(token string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path(), []byte(token), 0o600)
}

func (s *FileStore) Delete() error {
	err := os.Remove(s.path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryStore holds the token in memory, useful for tests and short
// lived processes.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
