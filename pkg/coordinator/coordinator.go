package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/beacon"
	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// ManualCueStore resolves the manually-triggered cue for a channel, set via
// the cue HTTP API (spec §6's POST /{org}/{channel}/cue).
type ManualCueStore interface {
	PendingCue(ctx context.Context, org, channel string) (*Cue, error)
}

// SCTE35CueSource resolves SCTE-35-derived cues observed in the origin
// manifest for a channel (spec §4.1's decoded splice_insert/time_signal
// events, surfaced here as normalized Cues). manifestText is the raw origin
// variant playlist already fetched for this request; channelDefaultDuration
// backstops a signal whose DATERANGE attributes and binary payload both
// carry no duration.
type SCTE35CueSource interface {
	PendingCues(ctx context.Context, org, channel, manifestText string, channelDefaultDuration time.Duration, now time.Time) ([]Cue, error)
}

// TimeScheduleSource resolves the next scheduled break for a channel, if
// any, from a time-based programming schedule.
type TimeScheduleSource interface {
	NextScheduledCue(ctx context.Context, org, channel string) (*Cue, error)
}

// Coordinator is the top-level entry point (Module C4): it owns one
// channelActor per (org, channel), created lazily, grounded on the
// teacher's IPRequestLimiter's sync.Map-of-per-key-state pattern
// generalized from a rate counter to a full ad-break state machine.
type Coordinator struct {
	actors   sync.Map // map[string]*channelActor
	KV       collab.DurableKV
	Resolver DecisionResolver
	Producer *beacon.Producer

	ManualCues ManualCueStore
	SCTE35     SCTE35CueSource
	Schedule   TimeScheduleSource
}

// NewCoordinator constructs a Coordinator. kv may be nil, in which case
// AdBreakState lives only in memory for the process lifetime (acceptable
// for a single-instance deployment; a shared kv is required for a
// replicated one, per spec §5).
//
// SCTE35 defaults to ManifestSCTE35Source, which scans the viewer request's
// own origin manifest; this is core C4 behavior, not an external
// collaborator, so a caller only needs to override it in tests.
func NewCoordinator(kv collab.DurableKV, resolver DecisionResolver, producer *beacon.Producer) *Coordinator {
	return &Coordinator{
		KV:       kv,
		Resolver: resolver,
		Producer: producer,
		SCTE35:   ManifestSCTE35Source{},
	}
}

func (c *Coordinator) actorFor(org, channel string) *channelActor {
	key := fmt.Sprintf("%s/%s", org, channel)
	if v, ok := c.actors.Load(key); ok {
		return v.(*channelActor)
	}
	a := newChannelActor(org, channel, c.KV)
	actual, _ := c.actors.LoadOrStore(key, a)
	return actual.(*channelActor)
}

// Handle processes one viewer playlist request end to end: it hydrates the
// cue fields on req from the configured cue sources when the caller hasn't
// already populated them, then delegates to the channel's actor.
func (c *Coordinator) Handle(ctx context.Context, req ViewerRequest) (Manifest, Diagnostics) {
	var diag Diagnostics

	if req.ManualCue == nil && c.ManualCues != nil {
		cue, err := c.ManualCues.PendingCue(ctx, req.Org, req.Channel)
		if err != nil {
			diag.addWarning("coordinator: manual cue lookup failed: %v", err)
		} else {
			req.ManualCue = cue
		}
	}
	if req.SCTE35Cues == nil && c.SCTE35 != nil {
		defaultDur := time.Duration(req.ChannelConfig.DefaultAdDurationSec * float64(time.Second))
		cues, err := c.SCTE35.PendingCues(ctx, req.Org, req.Channel, req.OriginManifest, defaultDur, req.Now)
		if err != nil {
			diag.addWarning("coordinator: SCTE-35 cue lookup failed: %v", err)
		} else {
			req.SCTE35Cues = cues
		}
	}
	if req.ScheduleCue == nil && c.Schedule != nil {
		cue, err := c.Schedule.NextScheduledCue(ctx, req.Org, req.Channel)
		if err != nil {
			diag.addWarning("coordinator: schedule lookup failed: %v", err)
		} else {
			req.ScheduleCue = cue
		}
	}

	actor := c.actorFor(req.Org, req.Channel)
	manifest, handleDiag := actor.handle(ctx, req, c.Resolver, c.Producer)
	diag.merge(handleDiag)
	return manifest, diag
}
