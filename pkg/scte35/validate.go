package scte35

import (
	"time"
)

const (
	minDurationSec = 0.1
	maxDurationSec = 300.0

	warnShortDurationSec = 5.0
	warnLongDurationSec  = 180.0

	maxPastSkew   = 10 * time.Minute
	maxFutureSkew = 5 * time.Minute
	warnPastSkew  = 2 * time.Minute

	maxUPIDBytes = 256
)

// Validate applies every critical/warning rule from spec §4.1 to a
// normalized Signal. now is the wall-clock reference for startPDT skew
// checks. Validate always treats a nil
// DurationSec on a break-start signal as a critical error — the channel
// default is applied by the caller (the SCTE-35 attribute parser) before
// Validate runs, so that Validate's "missing duration" rule only fires for
// genuinely absent data.
func Validate(s *Signal, now time.Time) Diagnostics {
	var d Diagnostics

	if s.ID == "" {
		d.addError("scte35: signal id is empty")
	}

	switch s.Type {
	case TypeSpliceInsert, TypeTimeSignal, TypeReturnSignal:
	default:
		d.addError("scte35: unknown signal type %q", s.Type)
	}

	if !s.IsStop {
		validateDuration(s, &d)
	}

	validateStartPDT(s, now, &d)

	if s.PTS90k != nil {
		// PTS is stored as uint64 (always non-negative); the only remaining
		// rule is that it must not exceed the 33-bit PTS space.
		if *s.PTS90k >= 1<<33 {
			d.addError("scte35: pts value %d exceeds 33-bit range", *s.PTS90k)
		}
	}

	if s.SegmentNum != nil && s.SegmentsExpected != nil {
		if *s.SegmentNum < 0 || *s.SegmentsExpected < 0 {
			d.addError("scte35: segmentNum/segmentsExpected must not be negative")
		} else if *s.SegmentNum >= *s.SegmentsExpected {
			d.addError("scte35: segmentNum (%d) >= segmentsExpected (%d)", *s.SegmentNum, *s.SegmentsExpected)
		}
	}

	if s.UPID != nil && len(*s.UPID) > maxUPIDBytes {
		d.addWarning("scte35: upid length %d exceeds %d bytes", len(*s.UPID), maxUPIDBytes)
	}

	if s.Type == TypeSpliceInsert && !s.IsStop && !s.AutoReturn && s.BreakDur90k != nil {
		d.addWarning("scte35: splice_insert without auto_return")
	}

	return d
}

func validateDuration(s *Signal, d *Diagnostics) {
	if s.DurationSec == nil {
		d.addError("scte35: missing duration on ad-break start signal %q", s.ID)
		return
	}
	dur := *s.DurationSec
	if dur <= 0 {
		d.addError("scte35: duration %.3f is not positive for signal %q", dur, s.ID)
		return
	}
	if dur < minDurationSec || dur > maxDurationSec {
		d.addError("scte35: duration %.3f outside allowed range [%.1f, %.1f]", dur, minDurationSec, maxDurationSec)
		return
	}
	if dur < warnShortDurationSec || dur > warnLongDurationSec {
		d.addWarning("scte35: duration %.3f is unusually short or long", dur)
	}
}

func validateStartPDT(s *Signal, now time.Time, d *Diagnostics) {
	if s.StartPDT.IsZero() {
		d.addError("scte35: startPDT unparseable or absent for signal %q", s.ID)
		return
	}
	skew := now.Sub(s.StartPDT)
	switch {
	case skew > maxPastSkew:
		d.addError("scte35: startPDT %s is %s in the past, beyond %s limit", s.StartPDT, skew, maxPastSkew)
	case -skew > maxFutureSkew:
		d.addError("scte35: startPDT %s is %s in the future, beyond %s limit", s.StartPDT, -skew, maxFutureSkew)
	case skew > warnPastSkew:
		d.addWarning("scte35: startPDT %s is %s in the past", s.StartPDT, skew)
	}
}
