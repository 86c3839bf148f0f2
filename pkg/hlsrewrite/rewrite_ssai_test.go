package hlsrewrite

import (
	"strings"
	"testing"
	"time"
)

func adPodWithSegments(n int, segDur float64) AdPod {
	var segs []Segment
	for i := 0; i < n; i++ {
		segs = append(segs, Segment{URI: "ad-seg.ts", DurationSec: segDur})
	}
	return AdPod{PodID: "pod1", Items: []AdPodItem{{
		BitrateBps:  2000000,
		PlaylistURI: "ads/pod1.m3u8",
		AdSegments:  segs,
	}}}
}

func TestRewriteSSAIHappyPath(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(20, 6.0, start)
	brk := BreakContext{
		BreakID:             "brk1",
		StartPDT:            start.Add(30 * time.Second), // segment index 5
		ContractDurationSec: 12.0,
	}
	pod := adPodWithSegments(2, 6.0)

	result, diag := RewriteSSAI(win, brk, pod)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if result.Mode != "ssai" {
		t.Fatalf("Mode = %q, want ssai", result.Mode)
	}
	if result.SkipCountUsed != 2 {
		t.Errorf("SkipCountUsed = %d, want 2", result.SkipCountUsed)
	}
	if result.ActualAdDurationSec != 12.0 {
		t.Errorf("ActualAdDurationSec = %v, want 12.0", result.ActualAdDurationSec)
	}
	if strings.Count(result.Manifest, "#EXT-X-DISCONTINUITY\n") != 2 {
		t.Errorf("expected exactly 2 discontinuity tags, manifest:\n%s", result.Manifest)
	}
	if !strings.Contains(result.Manifest, "ad-seg.ts") {
		t.Error("expected ad segment URIs in output manifest")
	}
}

func TestRewriteSSAIPersistedSkipCountReused(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(20, 6.0, start)
	persisted := 3
	brk := BreakContext{
		StartPDT:            start.Add(30 * time.Second),
		ContractDurationSec: 12.0,
		PersistedSkipCount:  &persisted,
	}
	pod := adPodWithSegments(2, 6.0)

	result, diag := RewriteSSAI(win, brk, pod)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if result.SkipCountUsed != 3 {
		t.Errorf("SkipCountUsed = %d, want persisted value 3", result.SkipCountUsed)
	}
}

func TestRewriteSSAINoPDTAnchorFallsBackToPassthrough(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(10, 6.0, start)
	brk := BreakContext{
		StartPDT:            start.Add(10 * time.Hour), // far outside window
		ContractDurationSec: 12.0,
	}
	pod := adPodWithSegments(2, 6.0)

	result, diag := RewriteSSAI(win, brk, pod)
	if diag.OK() {
		t.Fatal("expected an error diagnostic")
	}
	if result.Mode != "passthrough" {
		t.Errorf("Mode = %q, want passthrough", result.Mode)
	}
	if result.Manifest != win.Serialize() {
		t.Error("expected passthrough manifest to equal original serialization")
	}
}

func TestRewriteSSAIContractVsActualGapLogsWarning(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(20, 6.0, start)
	brk := BreakContext{
		StartPDT:            start.Add(30 * time.Second),
		ContractDurationSec: 20.0, // actual ad duration will be 12s: 8s gap
	}
	pod := adPodWithSegments(2, 6.0)

	result, diag := RewriteSSAI(win, brk, pod)
	if !diag.OK() {
		t.Fatalf("unexpected hard errors: %v", diag.Errors)
	}
	if len(diag.Warnings) == 0 {
		t.Fatal("expected a contract-vs-actual duration warning")
	}
	if result.ContractVsActualGapSec < 1.0 {
		t.Errorf("ContractVsActualGapSec = %v, want >= 1.0", result.ContractVsActualGapSec)
	}
}

func TestRewriteSSAIAudioOnlyNoEligibleItemIsCallerResponsibility(t *testing.T) {
	// SelectBitrate, not RewriteSSAI, is the audio-only gate; verify it
	// refuses to select rather than silently degrading.
	pod := AdPod{Items: []AdPodItem{{BitrateBps: 2000000, IsAudioOnly: false}}}
	if _, err := SelectBitrate(pod, 64000, true); err != ErrNoEligibleItem {
		t.Fatalf("err = %v, want ErrNoEligibleItem", err)
	}
}
