package hlsrewrite

import (
	"strings"
	"testing"
	"time"
)

func TestRewriteSGAIEmitsDateRangeAndCueTags(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(10, 6.0, start)
	brk := BreakContext{
		BreakID:             "brk-sgai-1",
		StartPDT:            start.Add(18 * time.Second), // segment index 3
		ContractDurationSec: 12.0,
	}
	pod := AdPod{Items: []AdPodItem{{
		BitrateBps:  2000000,
		PlaylistURI: "https://ads.example.com/pod1/hd.m3u8",
		DurationSec: 12.0,
	}}}

	result, diag := RewriteSGAI(win, brk, pod, SGAIOptions{DateRangeID: "brk-sgai-1"})
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if result.Mode != "sgai" {
		t.Fatalf("Mode = %q, want sgai", result.Mode)
	}
	if !strings.Contains(result.Manifest, `CLASS="com.apple.hls.interstitial"`) {
		t.Error("expected interstitial DATERANGE class")
	}
	if !strings.Contains(result.Manifest, `X-ASSET-URI="https://ads.example.com/pod1/hd.m3u8"`) {
		t.Error("expected X-ASSET-URI pointing at selected rendition")
	}
	if !strings.Contains(result.Manifest, "#EXT-X-CUE-OUT:") {
		t.Error("expected a companion EXT-X-CUE-OUT tag")
	}
	if !strings.Contains(result.Manifest, "#EXT-X-CUE-IN") {
		t.Error("expected a companion EXT-X-CUE-IN tag")
	}
	if len(win.Segments) != 10 {
		t.Fatal("original segment count must be untouched by SGAI mode")
	}
}

func TestRewriteSGAINeverShortensAnnouncedDuration(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(10, 6.0, start)
	brk := BreakContext{StartPDT: start.Add(18 * time.Second), ContractDurationSec: 12.0}
	pod := AdPod{Items: []AdPodItem{{PlaylistURI: "ads/pod1.m3u8", DurationSec: 10.0}}}

	result, diag := RewriteSGAI(win, brk, pod, SGAIOptions{DateRangeID: "b1", PreviousDurationSec: 15.0})
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if !strings.Contains(result.Manifest, "DURATION=15.000") {
		t.Errorf("expected DURATION to not shrink below previously announced value, manifest:\n%s", result.Manifest)
	}
}

func TestRewriteSGAIMissingAssetURIFallsBackToPassthrough(t *testing.T) {
	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	win := buildDenseWindow(10, 6.0, start)
	brk := BreakContext{StartPDT: start.Add(18 * time.Second), ContractDurationSec: 12.0}
	pod := AdPod{Items: []AdPodItem{{DurationSec: 10.0}}}

	result, diag := RewriteSGAI(win, brk, pod, SGAIOptions{})
	if diag.OK() {
		t.Fatal("expected an error diagnostic for missing playlist URI")
	}
	if result.Mode != "passthrough" {
		t.Errorf("Mode = %q, want passthrough", result.Mode)
	}
}
