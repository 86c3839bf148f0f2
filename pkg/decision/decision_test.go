package decision

import (
	"context"
	"testing"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/collab/memstore"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

func TestResolveUsesCachedDecisionWithinTTL(t *testing.T) {
	e := &Engine{}
	cached := hlsrewrite.AdPod{PodID: "cached-pod"}
	req := DecisionRequest{CachedPod: &cached, CachedAt: time.Now().Add(-5 * time.Second)}

	pod, diag := e.Resolve(context.Background(), req)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID != "cached-pod" {
		t.Fatalf("pod = %+v, want cached-pod", pod)
	}
}

func TestResolveIgnoresStaleCachedDecision(t *testing.T) {
	store := memstore.New()
	putPodDescriptor(t, store, slatePodPrefix+"slate1", podDescriptor{
		PodID: "slate1",
		Items: []podDescriptorItem{{BitrateBps: 500000, PlaylistURI: "slate.m3u8"}},
	})
	e := &Engine{Store: store}
	cached := hlsrewrite.AdPod{PodID: "stale-pod"}
	req := DecisionRequest{CachedPod: &cached, CachedAt: time.Now().Add(-60 * time.Second), SlatePodID: "slate1"}

	pod, diag := e.Resolve(context.Background(), req)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID == "stale-pod" {
		t.Fatal("expected a stale cached decision to be ignored")
	}
	if pod.PodID != "slate1" {
		t.Fatalf("pod = %+v, want fall-through to slate1", pod)
	}
}

func TestResolveFallsThroughToObjectStorePod(t *testing.T) {
	store := memstore.New()
	putPodDescriptor(t, store, objectStorePodPrefix+"pod1", podDescriptor{
		PodID: "pod1",
		Items: []podDescriptorItem{{BitrateBps: 1500000, PlaylistURI: "pod1.m3u8"}},
	})
	e := &Engine{Store: store}
	req := DecisionRequest{ObjectPodID: "pod1"}

	pod, diag := e.Resolve(context.Background(), req)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID != "pod1" {
		t.Fatalf("pod = %+v, want pod1", pod)
	}
}

func TestResolveFallsThroughToSlateWhenEverythingElseFails(t *testing.T) {
	store := memstore.New()
	putPodDescriptor(t, store, slatePodPrefix+"slate1", podDescriptor{
		PodID: "slate1",
		Items: []podDescriptorItem{{BitrateBps: 500000, PlaylistURI: "slate.m3u8"}},
	})
	e := &Engine{Store: store}
	req := DecisionRequest{ObjectPodID: "missing-pod", SlatePodID: "slate1"}

	pod, diag := e.Resolve(context.Background(), req)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if pod.PodID != "slate1" {
		t.Fatalf("pod = %+v, want slate1", pod)
	}
}

func TestResolveExhaustedWaterfallReturnsError(t *testing.T) {
	e := &Engine{}
	req := DecisionRequest{}

	_, diag := e.Resolve(context.Background(), req)
	if diag.OK() {
		t.Fatal("expected an error when no waterfall step can resolve a pod")
	}
}

func TestResolveSlateUnresolvedIsTerminalError(t *testing.T) {
	store := memstore.New()
	e := &Engine{Store: store}
	req := DecisionRequest{SlatePodID: "missing-slate"}

	_, diag := e.Resolve(context.Background(), req)
	if diag.OK() {
		t.Fatal("expected a terminal error when the slate itself can't be resolved")
	}
}
