package storage

import (
	"sort"
	"sync"
)

// SessionStore is a process-lifetime string store, the counterpart of a
// browser's session-scoped storage.
type SessionStore struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		values: make(map[string]string),
	}
}

func (s *SessionStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.values[key]
	return value, exists, nil
}

func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Keys returns every key in lexical order.
func (s *SessionStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
