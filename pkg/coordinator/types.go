// Package coordinator implements the per-channel single-writer state
// machine (spec §4.4): it merges cue sources, owns AdBreakState, invokes the
// HLS Rewriter, and decides insertion mode per viewer request.
package coordinator

import (
	"time"

	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

// State is the coordinator's per-channel lifecycle state.
type State string

const (
	StateIdle    State = "IDLE"
	StateInBreak State = "IN_BREAK"
)

// Cue is a normalized trigger for starting or stopping a break, merged from
// the manual cue API, SCTE-35, or the time-based schedule (spec §4.4).
type Cue struct {
	ID          string
	Source      CueSourceKind
	DurationSec float64
	StartPDT    time.Time
	Stop        bool
	PinnedPodID string // manual cue override; empty when not pinned
	PinnedMode  string // manual cue override of insertion mode; "" defers to resolveInsertionMode
	Tier        int
}

// CueSourceKind names which of the three cue sources produced a Cue, used
// to enforce the manual > SCTE-35 > schedule priority order.
type CueSourceKind int

const (
	CueSourceManual CueSourceKind = iota
	CueSourceSCTE35
	CueSourceSchedule
)

// AdBreakState is the coordinator's exclusively-owned, single-writer
// persisted state for one active break, per spec §3.
type AdBreakState struct {
	ID                     string
	PodID                  string
	StartPDT               time.Time
	StartedAtMs            int64
	EndsAtMs               int64
	DurationSec            float64
	AdActualDurationSec    float64
	ContentSegmentsToSkip  *int
	SkippedDurationSec     float64
	Decision               hlsrewrite.AdPod
	DecisionCalculatedAtMs int64
	ProcessedEventIDs      []string
}

func (s *AdBreakState) hasProcessed(id string) bool {
	for _, p := range s.ProcessedEventIDs {
		if p == id {
			return true
		}
	}
	return false
}

// ViewerRequest is one viewer's playlist request.
type ViewerRequest struct {
	Org              string
	Channel          string
	Variant          string
	Now              time.Time
	ViewerBitrateBps int
	AudioOnly        bool
	ModeOverride     string // "ssai"/"sgai" from the ?mode= query param
	ClientIsApple    bool
	OriginManifest   string // raw origin variant playlist text
	ManualCue        *Cue
	SCTE35Cues       []Cue
	ScheduleCue      *Cue
	ChannelConfig    ChannelConfig
	SlatePlaylistURI string
	Deadline         time.Time
}

// ChannelConfig is the subset of channel configuration the coordinator
// needs directly (the rest flows into the decision engine).
type ChannelConfig struct {
	Mode                string // "", "ssai", "sgai"
	SCTE35AutoInsert    bool
	TimeBasedAutoInsert bool
	Tier                int
	BreakGraceMs        int64
	SlatePodID          string
	VASTURL             string
	// DefaultAdDurationSec is the break duration assumed for a DATERANGE
	// SCTE-35 signal that carries none of DURATION/PLANNED-DURATION/
	// X-BREAK-DURATION and decodes no binary break_duration either.
	DefaultAdDurationSec float64
}

// Manifest is the coordinator's response to a viewer request.
type Manifest struct {
	Text string
	Mode string // "ssai", "sgai", or "passthrough"
}
