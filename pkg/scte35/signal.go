package scte35

import (
	"fmt"
	"time"
)

// SignalType enumerates the normalized cue categories the coordinator
// reconciles.
type SignalType string

const (
	TypeSpliceInsert SignalType = "splice_insert"
	TypeTimeSignal   SignalType = "time_signal"
	TypeReturnSignal SignalType = "return_signal"
)

// Signal is the normalized representation of an ad-break cue, derived from
// either an EXT-X-DATERANGE attribute set or a decoded splice_info_section.
// It carries no behavior and does no I/O.
type Signal struct {
	ID       string
	Type     SignalType
	StartPDT time.Time

	// DurationSec distinguishes "field absent" (nil) from "field present and
	// explicitly zero" (non-nil, pointing at 0). Validation treats these
	// differently: absent is a missing-duration error, explicit zero is a
	// non-positive-duration error — both are rejections, but for distinct
	// reasons callers may want to log separately.
	DurationSec *float64
	AutoReturn  bool

	SpliceEventID *uint32
	PTS90k        *uint64
	BreakDur90k   *uint64
	Tier          *uint16

	UPID     *string
	UPIDType *uint8

	SegmentNum       *int
	SegmentsExpected *int

	// IsStop, when set, signals an explicit stop (out_of_network_indicator=0
	// on a splice_insert, or a segmentation "*-END"/"*-IN" marker).
	IsStop bool

	// Source records where this signal was derived from, for diagnostics only.
	Source SignalSource
}

// SignalSource records provenance for logging/telemetry, not semantics.
type SignalSource string

const (
	SourceDateRangeAttr SignalSource = "daterange"
	SourceBinary        SignalSource = "binary"
)

// Diagnostics accumulates non-fatal warnings and fatal errors from a parse
// or validation pass. It is the sum-typed result shape mandated in place of
// exceptions: callers inspect Errors/Warnings rather than catching panics.
type Diagnostics struct {
	Errors   []error
	Warnings []error
}

// OK reports whether no critical errors were recorded.
func (d Diagnostics) OK() bool {
	return len(d.Errors) == 0
}

func (d *Diagnostics) addError(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Errorf(format, args...))
}

func (d *Diagnostics) addWarning(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Errorf(format, args...))
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
}

// segmentation type IDs that mark an ad-break start, per spec §4.1.
var breakStartSegmentationTypes = map[uint8]bool{
	0x22: true, // Break Start (Provider Ad Start in SCTE-35 table terms, "BreakStart" by spec naming)
	0x30: true, // Provider Advertisement Start
	0x32: true, // Distributor Advertisement Start
	0x34: true, // Provider Placement Opportunity Start
	0x36: true, // Distributor Placement Opportunity Start
}

// breakEndSegmentationTypes is the symmetric "*-IN"/"*-END" set, each value
// one greater than its "-OUT"/"-START" counterpart per SCTE-35 Table 22.
var breakEndSegmentationTypes = map[uint8]bool{
	0x23: true,
	0x31: true,
	0x33: true,
	0x35: true,
	0x37: true,
}
