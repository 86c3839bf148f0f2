package decision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liveadstitch/ssai-core/pkg/collab"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

const (
	objectStorePodPrefix = "pods/"
	slatePodPrefix       = "slate/"
)

// podDescriptor is the stored object-store representation of an AdPod's
// renditions, written by the out-of-core transcode pipeline and read here.
type podDescriptor struct {
	PodID string              `json:"podId"`
	Items []podDescriptorItem `json:"items"`
}

type podDescriptorItem struct {
	BitrateBps  int                    `json:"bitrateBps"`
	IsAudioOnly bool                   `json:"isAudioOnly"`
	PlaylistURI string                 `json:"playlistUri"`
	DurationSec float64                `json:"durationSec"`
	Segments    []hlsSegmentDescriptor `json:"segments"`
	Trackers    map[string][]string    `json:"trackers"`
}

type hlsSegmentDescriptor struct {
	URI         string  `json:"uri"`
	DurationSec float64 `json:"durationSec"`
}

// ObjectStorePodSource looks up a pod descriptor under prefix+podID and
// hydrates it into an AdPod (spec §4.3 waterfall step 3).
func ObjectStorePodSource(ctx context.Context, store collab.ObjectStore, prefix, podID string) (hlsrewrite.AdPod, Diagnostics) {
	var diag Diagnostics
	key := prefix + podID
	body, err := store.Get(ctx, key)
	if err != nil {
		diag.addWarning("decision: object-store pod %q not found: %v", key, err)
		return hlsrewrite.AdPod{}, diag
	}
	pod, derr := decodePodDescriptor(body)
	if derr != nil {
		diag.addError("decision: object-store pod %q decode: %v", key, derr)
		return hlsrewrite.AdPod{}, diag
	}
	return pod, diag
}

// SlatePodSource resolves the channel's configured slate pod through the
// same object-store path as ObjectStorePodSource — spec explicitly
// forbids hard-coded slate URLs (spec §4.3 waterfall step 4).
func SlatePodSource(ctx context.Context, store collab.ObjectStore, slatePodID string) (hlsrewrite.AdPod, Diagnostics) {
	var diag Diagnostics
	if slatePodID == "" {
		diag.addError("decision: no slate pod configured")
		return hlsrewrite.AdPod{}, diag
	}
	key := slatePodPrefix + slatePodID
	body, err := store.Get(ctx, key)
	if err != nil {
		diag.addError("decision: slate pod %q not found: %v", key, err)
		return hlsrewrite.AdPod{}, diag
	}
	pod, derr := decodePodDescriptor(body)
	if derr != nil {
		diag.addError("decision: slate pod %q decode: %v", key, derr)
		return hlsrewrite.AdPod{}, diag
	}
	return pod, diag
}

func decodePodDescriptor(body []byte) (hlsrewrite.AdPod, error) {
	var d podDescriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return hlsrewrite.AdPod{}, fmt.Errorf("unmarshal pod descriptor: %w", err)
	}
	pod := hlsrewrite.AdPod{PodID: d.PodID}
	for _, it := range d.Items {
		item := hlsrewrite.AdPodItem{
			BitrateBps:  it.BitrateBps,
			IsAudioOnly: it.IsAudioOnly,
			PlaylistURI: it.PlaylistURI,
			DurationSec: it.DurationSec,
			Trackers:    it.Trackers,
		}
		for _, seg := range it.Segments {
			item.AdSegments = append(item.AdSegments, hlsrewrite.Segment{
				URI:         seg.URI,
				DurationSec: seg.DurationSec,
			})
		}
		pod.Items = append(pod.Items, item)
	}
	return pod, nil
}
