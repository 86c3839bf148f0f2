package app

import (
	"context"
	"sync"

	"github.com/liveadstitch/ssai-core/pkg/coordinator"
)

// manualCueStore is an in-memory coordinator.ManualCueStore backing the
// POST /{org}/{channel}/cue operation: the most recently posted cue for a
// channel is returned on every subsequent PendingCue call until overwritten
// by a new post. The coordinator's own dedup (by cue ID) prevents a single
// posted cue from restarting the break on every viewer request.
type manualCueStore struct {
	mu   sync.Mutex
	cues map[string]*coordinator.Cue
}

func newManualCueStore() *manualCueStore {
	return &manualCueStore{cues: make(map[string]*coordinator.Cue)}
}

func (m *manualCueStore) PendingCue(ctx context.Context, org, channel string) (*coordinator.Cue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cues[org+"/"+channel], nil
}

func (m *manualCueStore) set(org, channel string, cue *coordinator.Cue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cues[org+"/"+channel] = cue
}
