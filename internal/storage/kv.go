package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
)

const (
	// LocalStoreName is the file backing the simple key-value store
	LocalStoreName = "local.json"

	// PremiumFlagKey records VIP status; the value is "true" or the key is absent
	PremiumFlagKey = "isPremiumUser"
)

// StringStore is the read side shared by the simple and session stores.
type StringStore interface {
	Keys() ([]string, error)
	Get(key string) (string, bool, error)
}

// KVStore is a file-backed string-to-string store. Every mutation rewrites
// the whole file under an exclusive lock so a CLI invocation and a running
// server never interleave writes.
type KVStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// OpenKV returns a store backed by path, creating the parent directory.
func OpenKV(path string) (*KVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &KVStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file path
func (s *KVStore) Path() string {
	return s.path
}

func (s *KVStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store file: %w", err)
	}
	return values, nil
}

func (s *KVStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (s *KVStore) update(fn func(values map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	values, err := s.load()
	if err != nil {
		return err
	}
	fn(values)
	return s.save(values)
}

// Keys returns every key in lexical order.
func (s *KVStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (s *KVStore) Set(key, value string) error {
	return s.update(func(values map[string]string) {
		values[key] = value
	})
}

func (s *KVStore) Delete(key string) error {
	return s.update(func(values map[string]string) {
		delete(values, key)
	})
}

// IsPremium reports whether the VIP flag is set. Unreadable stores count as
// not premium.
func (s *KVStore) IsPremium() bool {
	value, ok, err := s.Get(PremiumFlagKey)
	return err == nil && ok && value == "true"
}

// SetPremium stores or clears the VIP flag
func (s *KVStore) SetPremium(on bool) error {
	if on {
		return s.Set(PremiumFlagKey, "true")
	}
	return s.Delete(PremiumFlagKey)
}
