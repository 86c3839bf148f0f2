// Package beacon implements the tracker-firing pipeline (spec §4.5):
// Producer enqueues one BeaconMessage per tracker event from a successful
// insertion, Consumer pulls batches and fires every tracker URL in a
// message concurrently, deduplicating and retrying with bounded backoff.
package beacon

import (
	"context"
	"fmt"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// Event is one beacon event kind.
type Event string

const (
	EventImpression Event = "imp"
	EventStart      Event = "start"
	EventQ1         Event = "q1"
	EventMid        Event = "mid"
	EventQ3         Event = "q3"
	EventComplete   Event = "complete"
	EventClick      Event = "click"
	EventError      Event = "error"
)

// Metadata carries request context useful for debugging and analytics, not
// interpreted by the pipeline itself.
type Metadata struct {
	BitrateBps   int
	Variant      string
	UserAgent    string
	SessionHint  string
}

// BeaconMessage is one tracker-firing unit of work, enqueued by the
// Coordinator on every successful insertion.
type BeaconMessage struct {
	Event       Event
	AdID        string
	Channel     string
	TrackerURLs []string
	Metadata    Metadata
	DedupKey    string
}

const topic = "beacons"

// Producer enqueues BeaconMessages onto the Queue collaborator.
type Producer struct {
	Queue collab.Queue
}

// NewProducer constructs a Producer over q.
func NewProducer(q collab.Queue) *Producer {
	return &Producer{Queue: q}
}

// Enqueue serializes msg and pushes it onto the beacon topic.
func (p *Producer) Enqueue(ctx context.Context, msg BeaconMessage) error {
	if msg.DedupKey == "" {
		msg.DedupKey = fmt.Sprintf("%s:%s:%s", msg.AdID, msg.Event, msg.Metadata.SessionHint)
	}
	body, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("beacon: encode message: %w", err)
	}
	return p.Queue.Enqueue(ctx, topic, body)
}
