// Package decision implements the ad decision waterfall (spec §4.3): given
// a break request, resolve an AdPod by trying, in order, a pre-calculated
// cached decision, VAST resolution, object-store pods, and finally a slate
// pod as the terminal safety net.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/collab"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

// DecisionRequest is the input to the waterfall.
type DecisionRequest struct {
	Org              string
	Channel          string
	DurationSec      float64
	ViewerBitrateBps int
	AudioOnly        bool
	Tier             int
	VASTURL          string
	ObjectPodID      string
	SlatePodID       string
	// CachedPod and CachedAt let the caller (the Channel Coordinator) supply
	// its own AdBreakState-held decision; if CachedAt is non-zero and no
	// older than 30s, it short-circuits the waterfall (spec step 1).
	CachedPod *hlsrewrite.AdPod
	CachedAt  time.Time
}

// Diagnostics mirrors pkg/hlsrewrite's shape: a non-fatal/fatal split that
// never changes control flow on its own — the waterfall always proceeds to
// its terminal slate step.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

func (d Diagnostics) OK() bool { return len(d.Errors) == 0 }

func (d *Diagnostics) addError(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) addWarning(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}

// cachedDecisionTTL is spec §4.3's 30s pre-calculated-decision freshness
// window.
const cachedDecisionTTL = 30 * time.Second

// decisionBudget is spec §4.3's total wall-clock time budget for the
// waterfall.
const decisionBudget = 150 * time.Millisecond

// Engine runs the waterfall against a VAST resolver and an object store.
type Engine struct {
	VAST  *VASTResolver
	Store collab.ObjectStore
}

// NewEngine constructs an Engine with a fresh VASTCache-backed resolver.
func NewEngine(store collab.ObjectStore, httpClient HTTPDoer) *Engine {
	return &Engine{
		VAST:  NewVASTResolver(httpClient, NewVASTCache(5*time.Minute)),
		Store: store,
	}
}

// Resolve runs the four-step waterfall, first success wins, bounded by
// decisionBudget. On timeout or error at any step it proceeds down the
// waterfall; the slate step is the terminal safety net and is never itself
// skipped on error — only on an empty SlatePodID.
func (e *Engine) Resolve(ctx context.Context, req DecisionRequest) (hlsrewrite.AdPod, Diagnostics) {
	var diag Diagnostics

	ctx, cancel := context.WithTimeout(ctx, decisionBudget)
	defer cancel()

	if req.CachedPod != nil && !req.CachedAt.IsZero() && time.Since(req.CachedAt) <= cachedDecisionTTL {
		return *req.CachedPod, diag
	}

	if req.VASTURL != "" && e.VAST != nil {
		pod, d := e.VAST.Resolve(ctx, req.VASTURL, req.Tier, req.AudioOnly)
		diag.merge(d)
		if d.OK() && len(pod.Items) > 0 {
			if selected, ok := selectForViewer(pod, req, &diag); ok {
				return selected, diag
			}
		} else {
			diag.addWarning("decision: VAST step produced no eligible items for %s, falling through", req.VASTURL)
		}
	}

	if e.Store != nil && req.ObjectPodID != "" {
		pod, d := ObjectStorePodSource(ctx, e.Store, objectStorePodPrefix, req.ObjectPodID)
		diag.merge(d)
		if d.OK() && len(pod.Items) > 0 {
			if selected, ok := selectForViewer(pod, req, &diag); ok {
				return selected, diag
			}
		}
	}

	if e.Store != nil && req.SlatePodID != "" {
		pod, d := SlatePodSource(ctx, e.Store, req.SlatePodID)
		diag.merge(d)
		if d.OK() && len(pod.Items) > 0 {
			if selected, ok := selectForViewer(pod, req, &diag); ok {
				return selected, diag
			}
		}
		diag.addError("decision: slate pod %q unresolved, waterfall exhausted", req.SlatePodID)
		return hlsrewrite.AdPod{}, diag
	}

	diag.addError("decision: no VAST, object-store, or slate source produced an eligible pod")
	return hlsrewrite.AdPod{}, diag
}

// selectForViewer narrows pod to the single rendition SelectBitrate picks
// for req's viewer, so the Rewriter never has to choose among renditions
// itself. A source with no eligible item (e.g. all-video pod for an
// audio-only viewer) is treated as if that waterfall step produced nothing,
// letting Resolve fall through to the next step.
func selectForViewer(pod hlsrewrite.AdPod, req DecisionRequest, diag *Diagnostics) (hlsrewrite.AdPod, bool) {
	item, err := hlsrewrite.SelectBitrate(pod, req.ViewerBitrateBps, req.AudioOnly)
	if err != nil {
		diag.addWarning("decision: pod %q: %v, falling through", pod.PodID, err)
		return hlsrewrite.AdPod{}, false
	}
	return hlsrewrite.AdPod{PodID: pod.PodID, Items: []hlsrewrite.AdPodItem{item}}, true
}
