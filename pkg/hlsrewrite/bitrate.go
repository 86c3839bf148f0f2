package hlsrewrite

import "errors"

// AdPodItem is one bitrate/audio rendition of an ad pod, as resolved by the
// decision engine. AdSegments holds the rendition's own media segments
// (already fetched and parsed upstream of this package); PlaylistURI is
// used as-is for SGAI's X-ASSET-URI and is not otherwise dereferenced here.
type AdPodItem struct {
	BitrateBps  int
	IsAudioOnly bool
	PlaylistURI string
	DurationSec float64
	AdSegments  []Segment
	// Trackers holds beacon URLs keyed by tracker type ("imp", "click",
	// "error", or a VAST Tracking event name); nil for sources that carry no
	// trackers of their own (e.g. a slate pod).
	Trackers map[string][]string
}

// AdPod is the full set of renditions selected for a break.
type AdPod struct {
	PodID string
	Items []AdPodItem
}

// ErrNoEligibleItem is returned when no AdPodItem in the pod can serve the
// requested viewer bitrate/audio combination; callers MUST treat this as a
// pass-through signal, never as a reason to insert a mismatched pod item.
var ErrNoEligibleItem = errors.New("hlsrewrite: no eligible ad pod item for viewer")

// SelectBitrate implements spec §4.2's bitrate matching rule: choose the
// AdPodItem whose BitrateBps equals or is nearest-below viewerBitrateBps.
// When audioOnly is true the selection set is restricted to audio-only
// items; if none exist, ErrNoEligibleItem is returned and the caller MUST
// fall back to pass-through rather than insert a video+audio pod into an
// audio-only stream.
func SelectBitrate(pod AdPod, viewerBitrateBps int, audioOnly bool) (AdPodItem, error) {
	var best AdPodItem
	found := false

	for _, item := range pod.Items {
		if item.IsAudioOnly != audioOnly {
			continue
		}
		if viewerBitrateBps <= 0 {
			// No viewer hint: take the lowest-bitrate eligible item as a
			// safe default.
			if !found || item.BitrateBps < best.BitrateBps {
				best = item
				found = true
			}
			continue
		}
		if item.BitrateBps > viewerBitrateBps {
			continue
		}
		if !found || item.BitrateBps > best.BitrateBps {
			best = item
			found = true
		}
	}

	if !found {
		return AdPodItem{}, ErrNoEligibleItem
	}
	return best, nil
}
