package scte35

import (
	"testing"
	"time"
)

func TestParseDateRangeAttrsStart(t *testing.T) {
	line := `#EXT-X-DATERANGE:ID="ev1",CLASS="com.apple.hls.scte35.out",START-DATE="2025-11-12T10:00:06Z",DURATION=6.000`
	s, d := ParseDateRangeAttrs(line, 0)
	if !d.OK() {
		t.Fatalf("unexpected errors: %v", d.Errors)
	}
	if s == nil {
		t.Fatal("expected a signal")
	}
	if s.ID != "ev1" {
		t.Errorf("ID = %q, want ev1", s.ID)
	}
	if s.IsStop {
		t.Errorf("expected a start signal")
	}
	if s.DurationSec == nil || *s.DurationSec != 6.0 {
		t.Errorf("DurationSec = %v, want 6.0", s.DurationSec)
	}
	wantPDT, _ := time.Parse(time.RFC3339, "2025-11-12T10:00:06Z")
	if !s.StartPDT.Equal(wantPDT) {
		t.Errorf("StartPDT = %v, want %v", s.StartPDT, wantPDT)
	}
}

func TestParseDateRangeAttrsZeroDurationIsPresent(t *testing.T) {
	line := `#EXT-X-DATERANGE:ID="ev2",SCTE35-OUT=0xABCD,START-DATE="2025-11-12T10:00:00Z",DURATION=0`
	s, _ := ParseDateRangeAttrs(line, 0)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if s.DurationSec == nil {
		t.Fatal("duration must be present (zero), not nil")
	}
	if *s.DurationSec != 0 {
		t.Errorf("DurationSec = %v, want 0", *s.DurationSec)
	}
}

func TestParseDateRangeAttrsMissingDurationUsesChannelDefault(t *testing.T) {
	line := `#EXT-X-DATERANGE:ID="ev3",SCTE35-OUT=0xABCD,START-DATE="2025-11-12T10:00:00Z"`
	s, _ := ParseDateRangeAttrs(line, 30*time.Second)
	if s.DurationSec == nil || *s.DurationSec != 30 {
		t.Fatalf("expected channel default duration 30s, got %v", s.DurationSec)
	}
}

func TestParseDateRangeAttrsUnrelatedTagIsNil(t *testing.T) {
	line := `#EXT-X-DATERANGE:ID="other",CLASS="com.example.metadata",START-DATE="2025-11-12T10:00:00Z"`
	s, d := ParseDateRangeAttrs(line, 0)
	if s != nil {
		t.Fatalf("expected nil signal for unrelated DATERANGE, got %+v", s)
	}
	if !d.OK() {
		t.Fatalf("unexpected errors for skipped tag: %v", d.Errors)
	}
}

func TestParseDateRangeAttrsSegmentationTypeEnd(t *testing.T) {
	line := `#EXT-X-DATERANGE:ID="ev4",X-SEGMENTATION-TYPE-ID=0x23,START-DATE="2025-11-12T10:00:30Z"`
	s, _ := ParseDateRangeAttrs(line, 0)
	if s == nil {
		t.Fatal("expected a signal")
	}
	if !s.IsStop {
		t.Errorf("segmentation type 0x23 (Break End) should classify as stop")
	}
}

func TestFormatDateRangeRoundTrip(t *testing.T) {
	dur := 6.0
	pdt, _ := time.Parse(time.RFC3339, "2025-11-12T10:00:06Z")
	s := &Signal{ID: "ev1", Type: TypeSpliceInsert, StartPDT: pdt, DurationSec: &dur}
	line := FormatDateRange(s)
	reparsed, d := ParseDateRangeAttrs(line, 0)
	if !d.OK() {
		t.Fatalf("unexpected errors reparsing: %v", d.Errors)
	}
	if reparsed.ID != s.ID {
		t.Errorf("ID mismatch: %q vs %q", reparsed.ID, s.ID)
	}
	if !reparsed.StartPDT.Equal(s.StartPDT) {
		t.Errorf("StartPDT mismatch: %v vs %v", reparsed.StartPDT, s.StartPDT)
	}
	if reparsed.DurationSec == nil || *reparsed.DurationSec != dur {
		t.Errorf("DurationSec mismatch: %v vs %v", reparsed.DurationSec, dur)
	}
}
