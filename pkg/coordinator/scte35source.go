package coordinator

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/scte35"
)

// ManifestSCTE35Source is the coordinator's default SCTE35CueSource: it
// scans the origin variant playlist already fetched for this viewer
// request for #EXT-X-DATERANGE tags and turns the SCTE-35-related ones
// into Cues, so a channel with SCTE35AutoInsert set needs no external cue
// feed at all.
type ManifestSCTE35Source struct{}

// PendingCues implements SCTE35CueSource. org/channel are unused here — the
// manifest itself carries everything this scan needs — and are accepted
// only to satisfy the interface other cue sources (an external SCTE-35
// detector, say) would need them for.
func (ManifestSCTE35Source) PendingCues(_ context.Context, _, _, manifestText string, channelDefaultDuration time.Duration, now time.Time) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(strings.NewReader(manifestText))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#EXT-X-DATERANGE:") {
			continue
		}
		signal := decodeDateRangeSignal(line, channelDefaultDuration, now)
		if signal == nil {
			continue
		}
		if diag := scte35.Validate(signal, now); !diag.OK() {
			continue
		}
		cues = append(cues, cueFromSignal(*signal))
	}
	return cues, nil
}

// decodeDateRangeSignal prefers a decoded binary splice_info_section over
// the tag's own DATERANGE attributes when a line carries both, per spec
// §4.1's "decoded binary wins" priority.
func decodeDateRangeSignal(line string, channelDefaultDuration time.Duration, now time.Time) *scte35.Signal {
	if b64 := scte35.InlineSpliceB64(line); b64 != "" {
		if sis, diag := scte35.DecodeSpliceInfoSection(b64); diag.OK() {
			if signal, diag2 := scte35.ToSignal(sis, now); diag2.OK() {
				return signal
			}
		}
	}
	signal, _ := scte35.ParseDateRangeAttrs(line, channelDefaultDuration)
	return signal
}

func cueFromSignal(s scte35.Signal) Cue {
	c := Cue{
		ID:       s.ID,
		Source:   CueSourceSCTE35,
		StartPDT: s.StartPDT,
		Stop:     s.IsStop,
	}
	if s.DurationSec != nil {
		c.DurationSec = *s.DurationSec
	}
	if s.Tier != nil {
		c.Tier = int(*s.Tier)
	}
	return c
}

var _ SCTE35CueSource = ManifestSCTE35Source{}
