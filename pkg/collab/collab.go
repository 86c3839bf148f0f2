// Package collab names the out-of-core collaborator interfaces the SSAI
// core depends on (spec §6.3): channel configuration, object storage,
// durable low-latency KV, a queue, and the transcoder job contract.
// Implementations live outside this module; the memkv/memqueue/memstore
// subpackages provide in-memory fixtures for tests only.
package collab

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by collaborator Get-style methods when a key or
// channel has no value.
var ErrNotFound = errors.New("collab: not found")

// ChannelConfig is the per-channel configuration a ChannelConfigSource
// resolves. Mode controls the coordinator's insertion-mode priority list
// (spec §4.4); VASTURL, SlatePodID, Tier and the two auto-insert flags feed
// the decision engine and coordinator directly.
type ChannelConfig struct {
	Org     string
	Channel string
	// OriginURL is the base URL of the upstream packager/origin this
	// channel's variant playlists and segments are fetched from.
	OriginURL            string
	Mode                 string // "", "ssai", or "sgai" — empty defers to feature detection
	VASTURL              string
	SlatePodID           string
	Tier                 int
	SCTE35AutoInsert     bool
	TimeBasedAutoInsert  bool
	TimeBasedIntervalSec int
	CacheControlMaxAgeSec int
	// DefaultAdDurationSec backstops a SCTE-35 signal with no usable
	// duration field of its own (spec §4.1's "else channel default" step).
	DefaultAdDurationSec float64
	ConfigVersion        int64
}

// ChannelConfigSource resolves per-channel configuration. Implementations
// are expected to cache aggressively (spec: "≤5s TTL") and to support an
// invalidation signal; that caching lives in the caller (cmd/ssai/app), not
// here — this interface is the read-through source of truth.
type ChannelConfigSource interface {
	GetChannelConfig(ctx context.Context, org, channel string) (*ChannelConfig, error)
}

// ObjectStore is a read/write blob store used for source videos,
// transcoded renditions, slate pods, and the VAST XML cache.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// DurableKV is a low-latency read/write key-value store used for the
// decision cache, beacon dedup store, and channel config cache.
type DurableKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// QueueMessage is one enqueued/consumed unit of work.
type QueueMessage struct {
	ID      string
	Topic   string
	Body    []byte
	Attempt int
}

// Queue is the producer/consumer contract used for beacon dispatch and
// transcode job submission, with ack/retry/DLQ semantics.
type Queue interface {
	Enqueue(ctx context.Context, topic string, body []byte) error
	Consume(ctx context.Context, topic string, batchSize int) ([]QueueMessage, error)
	Ack(ctx context.Context, msg QueueMessage) error
	Nack(ctx context.Context, msg QueueMessage) error
	DeadLetter(ctx context.Context, topic string, msg QueueMessage, reason string) error
}

// TranscodeJob is the job schema enqueued on ad upload. The core reads
// completion status updates but never drives the transcoder itself.
type TranscodeJob struct {
	AdID               string
	SourceKey          string
	BitratesBps        []int
	AudioOnlyBitrates  []int
}

// TranscodeStatus reports job progress as read by the core.
type TranscodeStatus struct {
	AdID      string
	Done      bool
	Error     string
	UpdatedAt time.Time
}
