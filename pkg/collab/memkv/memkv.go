// Package memkv is an in-memory DurableKV fixture for tests. It is not a
// production collaborator implementation.
package memkv

import (
	"context"
	"sync"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Store implements collab.DurableKV over an in-process map.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, collab.ErrNotFound
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.entries, key)
		return nil, collab.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.entries[key] = entry{value: append([]byte(nil), value...), expires: exp}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var _ collab.DurableKV = (*Store)(nil)
