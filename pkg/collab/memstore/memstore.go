// Package memstore is an in-memory ObjectStore fixture for tests. It is not
// a production collaborator implementation.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// Store implements collab.ObjectStore over an in-process map.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New constructs an empty Store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, collab.ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

func (s *Store) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), body...)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ collab.ObjectStore = (*Store)(nil)
