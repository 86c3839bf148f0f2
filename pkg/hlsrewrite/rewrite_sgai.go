package hlsrewrite

import (
	"fmt"
	"strings"
)

// SGAIOptions configures the EXT-X-DATERANGE interstitial emitted by
// RewriteSGAI.
type SGAIOptions struct {
	DateRangeID        string
	PlayoutControls    string // X-PLAYOUT-CONTROLS value, verbatim, empty to omit
	Restrict           string // X-RESTRICT value, verbatim, empty to omit
	PreviousDurationSec float64 // already-announced duration for this ID, if any (never shortened)
}

// RewriteSGAI implements spec §4.2's SGAI mode: segments are left intact,
// and a single EXT-X-DATERANGE interstitial (plus a companion CUE-OUT/IN
// pair for ecosystem compatibility) is inserted ahead of the splice point.
func RewriteSGAI(win *ManifestWindow, brk BreakContext, pod AdPod, opts SGAIOptions) (RewriteResult, Diagnostics) {
	var diag Diagnostics
	passthrough := func() (RewriteResult, Diagnostics) {
		return RewriteResult{Manifest: win.Serialize(), Mode: "passthrough"}, diag
	}

	if len(pod.Items) == 0 {
		diag.addError("sgai: ad pod has no items")
		return passthrough()
	}
	item := pod.Items[0]
	if item.PlaylistURI == "" {
		diag.addError("sgai: selected ad pod item has no playlist URI")
		return passthrough()
	}

	spliceIdx := win.FirstPDTAtOrAfter(brk.StartPDT)
	if spliceIdx < 0 {
		diag.addError("sgai: no PDT anchor found at or after startPDT")
		return passthrough()
	}

	durationSec := item.DurationSec
	if durationSec <= 0 {
		durationSec = brk.ContractDurationSec
	}
	if opts.PreviousDurationSec > durationSec {
		durationSec = opts.PreviousDurationSec
	}
	durationMs := int64(durationSec*1000 + 0.5)

	id := opts.DateRangeID
	if id == "" {
		id = brk.BreakID
	}

	var tags strings.Builder
	fmt.Fprintf(&tags, `#EXT-X-DATERANGE:ID="%s",CLASS="com.apple.hls.interstitial",START-DATE="%s",DURATION=%s,X-ASSET-URI="%s"`,
		id, brk.StartPDT.Format(pdtLayout), formatMillisAsSeconds(durationMs), item.PlaylistURI)
	if opts.PlayoutControls != "" {
		fmt.Fprintf(&tags, `,X-PLAYOUT-CONTROLS="%s"`, opts.PlayoutControls)
	}
	if opts.Restrict != "" {
		fmt.Fprintf(&tags, `,X-RESTRICT="%s"`, opts.Restrict)
	}

	out := &ManifestWindow{
		Version:               win.Version,
		TargetDurationSec:     win.TargetDurationSec,
		MediaSequence:         win.MediaSequence,
		DiscontinuitySequence: win.DiscontinuitySequence,
		HasDiscontinuitySeq:   win.HasDiscontinuitySeq,
		EndList:               win.EndList,
		Segments:              append([]Segment(nil), win.Segments...),
	}

	extra := []string{tags.String(), "#EXT-X-CUE-OUT:" + formatSecondsTag(durationSec)}
	if spliceIdx < len(out.Segments) {
		out.Segments[spliceIdx].RawExtraTags = append(extra, out.Segments[spliceIdx].RawExtraTags...)
	}

	cueInIdx := spliceIdx
	cum := 0.0
	for i := spliceIdx; i < len(out.Segments); i++ {
		cum += out.Segments[i].DurationSec
		if cum >= durationSec {
			cueInIdx = i + 1
			break
		}
	}
	if cueInIdx < len(out.Segments) {
		out.Segments[cueInIdx].RawExtraTags = append([]string{"#EXT-X-CUE-IN"}, out.Segments[cueInIdx].RawExtraTags...)
	}

	return RewriteResult{
		Manifest:            out.Serialize(),
		Mode:                "sgai",
		ActualAdDurationSec: durationSec,
	}, diag
}

func formatMillisAsSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

func formatSecondsTag(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}
