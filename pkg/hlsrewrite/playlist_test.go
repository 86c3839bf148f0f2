package hlsrewrite

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func sampleVariantText() string {
	return strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:4",
		"#EXT-X-TARGETDURATION:6",
		"#EXT-X-MEDIA-SEQUENCE:100",
		"#EXT-X-DISCONTINUITY-SEQUENCE:0",
		"#EXT-X-PROGRAM-DATE-TIME:2026-07-31T10:00:00.000Z",
		"#EXTINF:6.0,",
		"seg100.ts",
		"#EXTINF:6.0,",
		"seg101.ts",
		"#EXT-X-PROGRAM-DATE-TIME:2026-07-31T10:00:12.000Z",
		"#EXTINF:6.0,",
		"seg102.ts",
		"",
	}, "\n")
}

func TestParseVariantBasic(t *testing.T) {
	win, err := ParseVariant(sampleVariantText())
	if err != nil {
		t.Fatalf("ParseVariant: %v", err)
	}
	if win.Version != 4 {
		t.Errorf("Version = %d, want 4", win.Version)
	}
	if win.TargetDurationSec != 6 {
		t.Errorf("TargetDurationSec = %d, want 6", win.TargetDurationSec)
	}
	if win.MediaSequence != 100 {
		t.Errorf("MediaSequence = %d, want 100", win.MediaSequence)
	}
	if len(win.Segments) != 3 {
		t.Fatalf("len(Segments) = %d, want 3", len(win.Segments))
	}
	if !win.Segments[0].HasPDT {
		t.Error("expected first segment to carry a PDT")
	}
	if win.Segments[1].HasPDT {
		t.Error("expected second segment to not carry a PDT")
	}
	if !win.Segments[2].HasPDT {
		t.Error("expected third segment to carry a PDT")
	}
}

func TestFirstPDTAtOrAfter(t *testing.T) {
	win, _ := ParseVariant(sampleVariantText())
	target := time.Date(2026, 7, 31, 10, 0, 5, 0, time.UTC)
	idx := win.FirstPDTAtOrAfter(target)
	if idx != 2 {
		t.Errorf("FirstPDTAtOrAfter = %d, want 2", idx)
	}
}

func TestFirstPDTAtOrAfterNoMatch(t *testing.T) {
	win, _ := ParseVariant(sampleVariantText())
	target := time.Date(2026, 7, 31, 11, 0, 0, 0, time.UTC)
	if idx := win.FirstPDTAtOrAfter(target); idx != -1 {
		t.Errorf("FirstPDTAtOrAfter = %d, want -1", idx)
	}
}

func buildDenseWindow(n int, segDur float64, start time.Time) *ManifestWindow {
	win := &ManifestWindow{
		Version:           4,
		TargetDurationSec: int(segDur),
		MediaSequence:     1000,
	}
	for i := 0; i < n; i++ {
		win.Segments = append(win.Segments, Segment{
			URI:         "seg" + strconv.Itoa(i) + ".ts",
			DurationSec: segDur,
			PDT:         start.Add(time.Duration(float64(i)*segDur) * time.Second),
			HasPDT:      true,
		})
	}
	return win
}

func TestNextPDTFromLineBound(t *testing.T) {
	win := buildDenseWindow(10, 6.0, time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC))
	idx, _ := win.NextPDTFrom(2, 30, 0)
	if idx != 3 {
		t.Errorf("NextPDTFrom = %d, want 3", idx)
	}
}
