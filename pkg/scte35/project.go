package scte35

import (
	"fmt"
	"time"
)

// ToSignal projects a decoded binary SpliceInfoSection into the normalized
// Signal shape. now anchors derived start times when the section itself
// carries no wall-clock reference (pts90k is not convertible to wall-clock
// time without the stream's PCR/PDT mapping, which the rewriter supplies
// separately); callers that have a PDT anchor from the enclosing manifest
// should overwrite StartPDT after calling ToSignal.
func ToSignal(sis *SpliceInfoSection, now time.Time) (*Signal, Diagnostics) {
	var d Diagnostics
	if sis == nil {
		d.addError("scte35: nil splice_info_section")
		return nil, d
	}

	s := &Signal{Source: SourceBinary, StartPDT: now}
	if sis.Tier != 0 {
		tier := sis.Tier
		s.Tier = &tier
	}

	switch {
	case sis.SpliceInsert != nil:
		projectSpliceInsert(sis.SpliceInsert, s)
	case sis.TimeSignal != nil:
		s.Type = TypeTimeSignal
		s.ID = fmt.Sprintf("ts-%d", ptsOrZero(sis.TimeSignal.PTSTime))
		s.PTS90k = sis.TimeSignal.PTSTime
		s.AutoReturn = true
	default:
		d.addError("scte35: section carries no actionable splice command")
		return s, d
	}

	applySegmentationDescriptors(sis.SegmentationDescriptors, s)

	return s, d
}

func projectSpliceInsert(ins *SpliceInsertCommand, s *Signal) {
	id := ins.SpliceEventID
	s.SpliceEventID = &id
	s.ID = fmt.Sprintf("ev%d", id)
	s.PTS90k = ins.PTSTime
	s.BreakDur90k = ins.BreakDuration90k
	s.AutoReturn = ins.AutoReturn

	if ins.BreakDuration90k != nil {
		sec := float64(*ins.BreakDuration90k) / 90000.0
		s.DurationSec = &sec
	}

	if !ins.OutOfNetworkIndicator && !ins.SpliceEventCancel {
		// out_of_network_indicator=0 on a non-cancel splice_insert is an
		// explicit "return to content" marker.
		s.IsStop = true
		s.Type = TypeReturnSignal
	} else {
		s.Type = TypeSpliceInsert
	}
}

func applySegmentationDescriptors(descs []*SegmentationDescriptor, s *Signal) {
	for _, sd := range descs {
		if breakEndSegmentationTypes[sd.SegmentationTypeID] {
			s.IsStop = true
		}
		if breakStartSegmentationTypes[sd.SegmentationTypeID] && s.DurationSec == nil && sd.SegmentationDuration != nil {
			sec := float64(*sd.SegmentationDuration) / 90000.0
			s.DurationSec = &sec
		}
		if len(sd.UPID) > 0 {
			upid := string(sd.UPID)
			s.UPID = &upid
			upidType := sd.UPIDType
			s.UPIDType = &upidType
		} else if sd.UPIDType != 0 {
			// UPID type present with an explicitly empty UPID body: the spec
			// requires distinguishing "absent" from "present and empty".
			empty := ""
			s.UPID = &empty
			upidType := sd.UPIDType
			s.UPIDType = &upidType
		}
		if sd.SegmentNum != 0 || sd.SegmentsExpected != 0 {
			num := int(sd.SegmentNum)
			exp := int(sd.SegmentsExpected)
			s.SegmentNum = &num
			s.SegmentsExpected = &exp
		}
	}
}

func ptsOrZero(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}
