package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/beacon"
	"github.com/liveadstitch/ssai-core/pkg/collab"
	"github.com/liveadstitch/ssai-core/pkg/decision"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

// DecisionResolver is the subset of pkg/decision.Engine the coordinator
// depends on, kept as an interface so tests can substitute a fixture.
type DecisionResolver interface {
	Resolve(ctx context.Context, req decision.DecisionRequest) (hlsrewrite.AdPod, decision.Diagnostics)
}

const defaultBreakGraceMs = 2000

// channelActor is the per-(org,channel) single-writer state machine (spec
// §4.4, §5): mu serializes every viewer request's read-modify-write of
// AdBreakState, grounded on the teacher's IPRequestLimiter mutex-guarded
// counter-map pattern generalized from a flat counter to a full state
// machine.
type channelActor struct {
	mu      sync.Mutex
	state   State
	current *AdBreakState
	kvKey   string
	kv      collab.DurableKV
}

func newChannelActor(org, channel string, kv collab.DurableKV) *channelActor {
	return &channelActor{
		state: StateIdle,
		kvKey: fmt.Sprintf("adbreak:%s:%s", org, channel),
		kv:    kv,
	}
}

func (a *channelActor) reload(ctx context.Context) {
	if a.kv == nil {
		return
	}
	body, err := a.kv.Get(ctx, a.kvKey)
	if err != nil || body == nil {
		return
	}
	var st AdBreakState
	if json.Unmarshal(body, &st) == nil {
		a.current = &st
		a.state = StateInBreak
	}
}

func (a *channelActor) persist(ctx context.Context) {
	if a.kv == nil || a.current == nil {
		return
	}
	body, err := json.Marshal(a.current)
	if err != nil {
		return
	}
	ttl := time.Until(time.UnixMilli(a.current.EndsAtMs)) + defaultBreakGraceMs*time.Millisecond
	if ttl <= 0 {
		ttl = time.Minute
	}
	_ = a.kv.Put(ctx, a.kvKey, body, ttl)
}

func (a *channelActor) clear(ctx context.Context) {
	a.current = nil
	a.state = StateIdle
	if a.kv != nil {
		_ = a.kv.Delete(ctx, a.kvKey)
	}
}

// handle implements spec §4.4's per-viewer-request algorithm. It holds the
// actor's mutex for the full reconcile-then-rewrite duration, matching
// spec §5's requirement that the single-writer lock wrap the
// read-modify-write of AdBreakState.
func (a *channelActor) handle(ctx context.Context, req ViewerRequest, resolver DecisionResolver, producer *beacon.Producer) (Manifest, Diagnostics) {
	var diag Diagnostics

	if !req.Deadline.IsZero() && req.Now.After(req.Deadline) {
		diag.addError("coordinator: request deadline already exceeded, pass-through")
		return Manifest{Text: req.OriginManifest, Mode: "passthrough"}, diag
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.reload(ctx)

	if a.current != nil && req.Now.UnixMilli() >= a.current.EndsAtMs {
		a.clear(ctx)
	}

	if activeStopCue(req) && a.state == StateInBreak {
		a.clear(ctx)
	}

	cfg := req.ChannelConfig
	activeCue := mergeCues(req, cfg, func(id string) bool {
		return a.current != nil && a.current.hasProcessed(id)
	})

	switch a.state {
	case StateInBreak:
		if activeCue != nil && !a.current.hasProcessed(activeCue.ID) {
			a.current.ProcessedEventIDs = append(a.current.ProcessedEventIDs, activeCue.ID)
		}
	case StateIdle:
		if activeCue == nil {
			return Manifest{Text: req.OriginManifest, Mode: "passthrough"}, diag
		}

		win, err := hlsrewrite.ParseVariant(req.OriginManifest)
		if err != nil {
			diag.addError("coordinator: origin manifest parse failed: %v", err)
			return Manifest{Text: req.OriginManifest, Mode: "passthrough"}, diag
		}
		if activeCue.Source == CueSourceSCTE35 {
			if win.FirstPDTAtOrAfter(activeCue.StartPDT) < 0 {
				diag.addWarning("coordinator: SCTE-35 cue startPDT not in manifest window, skipping SSAI eligibility")
			}
		}

		decReq := decision.DecisionRequest{
			Org:              req.Org,
			Channel:          req.Channel,
			DurationSec:      activeCue.DurationSec,
			ViewerBitrateBps: req.ViewerBitrateBps,
			AudioOnly:        req.AudioOnly,
			Tier:             cfg.Tier,
			VASTURL:          cfg.VASTURL,
			ObjectPodID:      activeCue.PinnedPodID,
			SlatePodID:       cfg.SlatePodID,
		}
		pod, ddiag := resolver.Resolve(ctx, decReq)
		diag.merge(coordinatorDiagFromDecision(ddiag))

		var actualDur float64
		for _, it := range pod.Items {
			for _, seg := range it.AdSegments {
				actualDur += seg.DurationSec
			}
			break
		}

		grace := cfg.BreakGraceMs
		if grace <= 0 {
			grace = defaultBreakGraceMs
		}
		nowMs := req.Now.UnixMilli()
		a.current = &AdBreakState{
			ID:                     activeCue.ID,
			PodID:                  pod.PodID,
			StartPDT:               activeCue.StartPDT,
			StartedAtMs:            nowMs,
			EndsAtMs:               nowMs + int64(activeCue.DurationSec*1000) + grace,
			DurationSec:            activeCue.DurationSec,
			AdActualDurationSec:    actualDur,
			Decision:               pod,
			DecisionCalculatedAtMs: nowMs,
			ProcessedEventIDs:      []string{activeCue.ID},
		}
		a.state = StateInBreak
	}

	if a.current == nil {
		return Manifest{Text: req.OriginManifest, Mode: "passthrough"}, diag
	}

	pinnedMode := ""
	if activeCue != nil {
		pinnedMode = activeCue.PinnedMode
	}
	mode := resolveInsertionMode(req, cfg, pinnedMode)
	result, rewriteDiag := a.invokeRewriter(mode, req, *a.current)
	diag.merge(coordinatorDiagFromRewrite(rewriteDiag))

	if result.Mode == "ssai" {
		if a.current.ContentSegmentsToSkip == nil {
			skip := result.SkipCountUsed
			a.current.ContentSegmentsToSkip = &skip
		} else if result.SkipCountRecomputed != 0 && result.SkipCountRecomputed != *a.current.ContentSegmentsToSkip {
			diag.addWarning("coordinator: skip_count_mismatch persisted=%d recomputed=%d", *a.current.ContentSegmentsToSkip, result.SkipCountRecomputed)
		}
		a.current.AdActualDurationSec = result.ActualAdDurationSec
	}

	a.persist(ctx)

	if producer != nil {
		enqueueImpressionBeacons(ctx, producer, req, *a.current)
	}

	return Manifest{Text: result.Manifest, Mode: result.Mode}, diag
}

func (a *channelActor) invokeRewriter(mode string, req ViewerRequest, state AdBreakState) (hlsrewrite.RewriteResult, hlsrewrite.Diagnostics) {
	win, err := hlsrewrite.ParseVariant(req.OriginManifest)
	if err != nil {
		var d hlsrewrite.Diagnostics
		return hlsrewrite.RewriteResult{Manifest: req.OriginManifest, Mode: "passthrough"}, d
	}

	brk := hlsrewrite.BreakContext{
		BreakID:             state.ID,
		StartPDT:            state.StartPDT,
		ContractDurationSec: state.DurationSec,
		PersistedSkipCount:  state.ContentSegmentsToSkip,
		SlatePlaylistURI:    req.SlatePlaylistURI,
	}

	if mode == "sgai" {
		result, diag := hlsrewrite.RewriteSGAI(win, brk, state.Decision, hlsrewrite.SGAIOptions{DateRangeID: state.ID})
		return result, diag
	}

	result, diag := hlsrewrite.RewriteSSAI(win, brk, state.Decision)
	if result.Mode == "passthrough" && req.ClientIsApple {
		sgaiResult, sgaiDiag := hlsrewrite.RewriteSGAI(win, brk, state.Decision, hlsrewrite.SGAIOptions{DateRangeID: state.ID})
		if sgaiResult.Mode == "sgai" {
			sgaiDiag.merge(diag)
			return sgaiResult, sgaiDiag
		}
	}
	return result, diag
}

func enqueueImpressionBeacons(ctx context.Context, producer *beacon.Producer, req ViewerRequest, state AdBreakState) {
	_ = producer.Enqueue(ctx, beacon.BeaconMessage{
		Event:       beacon.EventImpression,
		AdID:        state.PodID,
		Channel:     req.Channel,
		TrackerURLs: impressionTrackerURLs(state.Decision),
		Metadata: beacon.Metadata{
			BitrateBps: req.ViewerBitrateBps,
			Variant:    req.Variant,
		},
	})
}

// impressionTrackerURLs collects the selected item's real "imp" tracker
// URLs (VAST Impression elements or an object-store pod's own trackers);
// a pod with none (e.g. slate) yields an empty slice, never a fabricated URL.
func impressionTrackerURLs(pod hlsrewrite.AdPod) []string {
	var urls []string
	for _, item := range pod.Items {
		urls = append(urls, item.Trackers["imp"]...)
	}
	return urls
}

func coordinatorDiagFromDecision(d decision.Diagnostics) Diagnostics {
	return Diagnostics{Errors: d.Errors, Warnings: d.Warnings}
}

func coordinatorDiagFromRewrite(d hlsrewrite.Diagnostics) Diagnostics {
	return Diagnostics{Errors: d.Errors, Warnings: d.Warnings}
}
