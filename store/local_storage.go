package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"zentask/zentask/models"
)

// Well-known local storage keys.
const (
	MirrorDataKey  = "zentask_mock_data"
	MirrorUserKey  = "zentask_mock_user"
	ForceMirrorKey = "zentask_force_mock"
)

// LocalStorage is a string key/value store. Missing keys are reported with
// ok=false, not an error.
type LocalStorage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// FileStorage keeps one file per key under a data directory. Writes replace
// the file atomically so readers never observe a partial blob.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".json")
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *FileStorage) Set(key, value string) error {
	return atomic.WriteFile(s.path(key), strings.NewReader(value))
}

func (s *FileStorage) Remove(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// MirrorForced reports whether demo mode was switched on persistently.
func MirrorForced(storage LocalStorage) bool {
	value, ok, err := storage.Get(ForceMirrorKey)
	if err != nil {
		log.Printf("Failed to read %s: %v", ForceMirrorKey, err)
		return false
	}
	return ok && value == "true"
}

func EnableDemoMode(storage LocalStorage) error {
	return storage.Set(ForceMirrorKey, "true")
}

func DisableDemoMode(storage LocalStorage) error {
	return storage.Remove(ForceMirrorKey)
}

// MirrorUser returns the user signed in to the local mirror, if any.
func MirrorUser(storage LocalStorage) (*models.Profile, error) {
	value, ok, err := storage.Get(MirrorUserKey)
	if err != nil || !ok || value == "null" {
		return nil, err
	}
	var profile models.Profile
	if err := json.Unmarshal([]byte(value), &profile); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", MirrorUserKey, err)
	}
	return &profile, nil
}

func SaveMirrorUser(storage LocalStorage, profile models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return storage.Set(MirrorUserKey, string(data))
}

func ClearMirrorUser(storage LocalStorage) error {
	return storage.Remove(MirrorUserKey)
}
