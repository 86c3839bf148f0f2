package scte35

import (
	"github.com/Comcast/gots/v2"
	gotsscte35 "github.com/Comcast/gots/v2/scte35"
)

// BuildSpliceInsertViaGots constructs a splice_insert() splice_info_section
// using Comcast/gots, independently of this package's own ByteReader/
// ByteWriter path. It exists so tests can cross-check DecodeSpliceInfoSection
// against a second, independently-maintained encoder rather than only
// round-tripping through this package's own Encode.
func BuildSpliceInsertViaGots(eventID uint32, ptsTime, breakDuration90k uint64, autoReturn, outOfNetwork bool) []byte {
	s := gotsscte35.CreateSCTE35()
	cmd := gotsscte35.CreateSpliceInsertCommand()
	cmd.SetEventID(eventID)
	cmd.SetIsOut(outOfNetwork)
	cmd.SetHasPTS(true)
	cmd.SetPTS(gots.PTS(ptsTime))
	if breakDuration90k > 0 {
		cmd.SetHasDuration(true)
		cmd.SetDuration(gots.PTS(breakDuration90k))
		cmd.SetIsAutoReturn(autoReturn)
	}
	s.SetCommandInfo(cmd)
	return s.UpdateData()
}
