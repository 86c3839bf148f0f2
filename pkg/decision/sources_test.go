package decision

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/liveadstitch/ssai-core/pkg/collab/memstore"
)

func putPodDescriptor(t *testing.T, store *memstore.Store, key string, d podDescriptor) {
	t.Helper()
	body, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Put(context.Background(), key, body); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestObjectStorePodSourceHydratesAdPod(t *testing.T) {
	store := memstore.New()
	putPodDescriptor(t, store, objectStorePodPrefix+"pod42", podDescriptor{
		PodID: "pod42",
		Items: []podDescriptorItem{
			{BitrateBps: 2000000, PlaylistURI: "ads/pod42/hd.m3u8", DurationSec: 30,
				Segments: []hlsSegmentDescriptor{{URI: "seg1.ts", DurationSec: 6}, {URI: "seg2.ts", DurationSec: 6}}},
		},
	})

	pod, diag := ObjectStorePodSource(context.Background(), store, objectStorePodPrefix, "pod42")
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID != "pod42" || len(pod.Items) != 1 {
		t.Fatalf("pod = %+v", pod)
	}
	if len(pod.Items[0].AdSegments) != 2 {
		t.Fatalf("AdSegments = %+v", pod.Items[0].AdSegments)
	}
}

func TestObjectStorePodSourceMissingIsWarningNotError(t *testing.T) {
	store := memstore.New()
	_, diag := ObjectStorePodSource(context.Background(), store, objectStorePodPrefix, "missing")
	if !diag.OK() {
		t.Fatalf("expected a warning, not an error, got: %v", diag.Errors)
	}
	if len(diag.Warnings) == 0 {
		t.Fatal("expected a warning for missing object-store pod")
	}
}

func TestSlatePodSourceMissingIsError(t *testing.T) {
	store := memstore.New()
	_, diag := SlatePodSource(context.Background(), store, "missing-slate")
	if diag.OK() {
		t.Fatal("expected an error when the slate pod can't be resolved")
	}
}

func TestSlatePodSourceEmptyIDIsError(t *testing.T) {
	store := memstore.New()
	_, diag := SlatePodSource(context.Background(), store, "")
	if diag.OK() {
		t.Fatal("expected an error for an unconfigured slate pod")
	}
}

func TestSlatePodSourceResolvesThroughObjectStore(t *testing.T) {
	store := memstore.New()
	putPodDescriptor(t, store, slatePodPrefix+"slate1", podDescriptor{
		PodID: "slate1",
		Items: []podDescriptorItem{{BitrateBps: 1000000, PlaylistURI: "slate/slate1.m3u8", DurationSec: 15}},
	})

	pod, diag := SlatePodSource(context.Background(), store, "slate1")
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID != "slate1" {
		t.Fatalf("pod = %+v", pod)
	}
}
