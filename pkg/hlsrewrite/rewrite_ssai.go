package hlsrewrite

import (
	"math"
	"time"
)

// BreakContext carries the per-break parameters the rewriter needs, sourced
// from the Channel Coordinator's AdBreakState.
type BreakContext struct {
	BreakID               string
	StartPDT              time.Time
	ContractDurationSec   float64
	PersistedSkipCount    *int // nil until the first successful SSAI rewrite of this break
	PDTSearchWindowLines  int  // default 30 when zero
	SlateGapThresholdSec  float64
	SlatePlaylistURI      string // resolvable object-store URI, never synthetic
	SlateSegmentDurations []float64
}

func (b BreakContext) searchWindowLines() int {
	if b.PDTSearchWindowLines > 0 {
		return b.PDTSearchWindowLines
	}
	return 30
}

func (b BreakContext) gapThresholdSec() float64 {
	if b.SlateGapThresholdSec > 0 {
		return b.SlateGapThresholdSec
	}
	return 1.0
}

// RewriteResult reports what a rewrite attempt produced.
type RewriteResult struct {
	Manifest              string
	Mode                  string // "ssai", "sgai", or "passthrough"
	SkipCountUsed         int
	SkipCountRecomputed   int // 0 unless a recomputation disagrees with PersistedSkipCount
	ActualAdDurationSec   float64
	DiscontinuitiesAdded  int
	ContractVsActualGapSec float64
}

const representativeSampleSize = 6

// averageContentSegmentDuration estimates the live segment duration around
// spliceIdx using a representative sample rather than the window's earliest
// segments, which are often a short join segment and would bias a VBR
// estimate (spec §4.2 step 2).
func averageContentSegmentDuration(win *ManifestWindow, spliceIdx int) float64 {
	const fallback = 6.0
	lo := spliceIdx - representativeSampleSize
	if lo < 2 {
		if spliceIdx < 2 {
			lo = 0
		} else {
			lo = 2
		}
	}
	hi := spliceIdx
	if hi > len(win.Segments) {
		hi = len(win.Segments)
	}
	if lo >= hi {
		lo, hi = 0, len(win.Segments)
	}
	var sum float64
	var n int
	for i := lo; i < hi; i++ {
		if win.Segments[i].DurationSec <= 0 {
			continue
		}
		sum += win.Segments[i].DurationSec
		n++
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// RewriteSSAI implements spec §4.2's segment-replacement algorithm, steps
// 1-9. pod.Items[0] is the already bitrate-selected rendition — the
// decision waterfall (decision.Engine.Resolve) calls SelectBitrate before
// ever handing a pod to this package; its AdSegments are spliced in place
// of contentSegmentsToSkip origin segments. Any internal error returns the
// unmodified origin manifest serialized verbatim, per spec's failure
// semantics — never a fabricated playlist.
func RewriteSSAI(win *ManifestWindow, brk BreakContext, pod AdPod) (RewriteResult, Diagnostics) {
	var diag Diagnostics
	passthrough := func() (RewriteResult, Diagnostics) {
		return RewriteResult{Manifest: win.Serialize(), Mode: "passthrough"}, diag
	}

	if len(pod.Items) == 0 || len(pod.Items[0].AdSegments) == 0 {
		diag.addError("ssai: ad pod has no segments to insert")
		return passthrough()
	}
	item := pod.Items[0]

	spliceIdx := win.FirstPDTAtOrAfter(brk.StartPDT)
	if spliceIdx < 0 {
		diag.addError("ssai: no PDT anchor found at or after startPDT %s", brk.StartPDT.Format(time.RFC3339))
		return passthrough()
	}

	var skipCount int
	if brk.PersistedSkipCount != nil {
		skipCount = *brk.PersistedSkipCount
	} else {
		avg := averageContentSegmentDuration(win, spliceIdx)
		skipCount = int(math.Ceil(brk.ContractDurationSec / avg))
		if skipCount < 1 {
			skipCount = 1
		}
	}

	resumeIdx := spliceIdx + skipCount
	if resumeIdx > len(win.Segments) {
		resumeIdx = len(win.Segments)
	}

	var recomputed int
	if brk.PersistedSkipCount != nil {
		avg := averageContentSegmentDuration(win, spliceIdx)
		want := int(math.Ceil(brk.ContractDurationSec / avg))
		if want != skipCount {
			recomputed = want
		}
	}

	resumePDTIdx, _ := win.NextPDTFrom(resumeIdx-1, brk.searchWindowLines(), 0)
	if resumePDTIdx < 0 {
		diag.addError("ssai: no resume PDT found within search window of %d lines", brk.searchWindowLines())
		return passthrough()
	}

	var actualAdDur float64
	adSegs := make([]Segment, 0, len(item.AdSegments))
	for i, s := range item.AdSegments {
		seg := s
		seg.HasPDT = false
		seg.PDT = time.Time{}
		if i == 0 {
			seg.IsDiscontinuity = true
		}
		actualAdDur += seg.DurationSec
		adSegs = append(adSegs, seg)
	}

	gap := brk.ContractDurationSec - actualAdDur
	if gap < 0 {
		gap = -gap
	}
	if gap > brk.gapThresholdSec() && brk.SlatePlaylistURI != "" {
		diag.addWarning("ssai: contract duration %.3fs vs actual ad duration %.3fs, gap %.3fs exceeds threshold; padding with slate",
			brk.ContractDurationSec, actualAdDur, gap)
		for _, d := range brk.SlateSegmentDurations {
			adSegs = append(adSegs, Segment{URI: brk.SlatePlaylistURI, DurationSec: d})
			actualAdDur += d
		}
	} else if gap > brk.gapThresholdSec() {
		diag.addWarning("ssai: contract duration %.3fs vs actual ad duration %.3fs, gap %.3fs (no slate configured)",
			brk.ContractDurationSec, actualAdDur, gap)
	}

	out := &ManifestWindow{
		Version:               win.Version,
		TargetDurationSec:     win.TargetDurationSec,
		MediaSequence:         win.MediaSequence,
		DiscontinuitySequence: win.DiscontinuitySequence,
		HasDiscontinuitySeq:   win.HasDiscontinuitySeq,
		EndList:               win.EndList,
	}

	out.Segments = append(out.Segments, win.Segments[:spliceIdx]...)
	out.Segments = append(out.Segments, adSegs...)

	if resumePDTIdx < resumeIdx {
		// NextPDTFrom searches starting at resumeIdx-1 (exclusive), so this
		// would mean it found a PDT behind the skip target; guard against a
		// degenerate window rather than emit segments out of order.
		diag.addError("ssai: resume PDT index precedes skip target")
		return passthrough()
	}
	resumeSegs := make([]Segment, 0, len(win.Segments)-resumePDTIdx)
	for i := resumePDTIdx; i < len(win.Segments); i++ {
		seg := win.Segments[i]
		if i == resumePDTIdx {
			seg.IsDiscontinuity = true
		}
		resumeSegs = append(resumeSegs, seg)
	}
	out.Segments = append(out.Segments, resumeSegs...)

	out.DiscontinuitySequence += 2

	return RewriteResult{
		Manifest:               out.Serialize(),
		Mode:                   "ssai",
		SkipCountUsed:          skipCount,
		SkipCountRecomputed:    recomputed,
		ActualAdDurationSec:    actualAdDur,
		DiscontinuitiesAdded:   2,
		ContractVsActualGapSec: gap,
	}, diag
}
