// Package memchannelconfig is an in-memory ChannelConfigSource fixture for
// tests and standalone runs. It is not a production collaborator
// implementation.
package memchannelconfig

import (
	"context"
	"fmt"
	"sync"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// Source implements collab.ChannelConfigSource over an in-process map.
type Source struct {
	mu   sync.Mutex
	cfgs map[string]*collab.ChannelConfig
}

// New constructs an empty Source.
func New() *Source {
	return &Source{cfgs: make(map[string]*collab.ChannelConfig)}
}

// Set registers or replaces the config for org/channel.
func (s *Source) Set(org, channel string, cfg *collab.ChannelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfgs[org+"/"+channel] = cfg
}

func (s *Source) GetChannelConfig(_ context.Context, org, channel string) (*collab.ChannelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.cfgs[org+"/"+channel]
	if !ok {
		return nil, fmt.Errorf("channel config for %s/%s: %w", org, channel, collab.ErrNotFound)
	}
	return cfg, nil
}

var _ collab.ChannelConfigSource = (*Source)(nil)
