// Package hlsrewrite parses live HLS variant playlists and rewrites them to
// splice in ad content, either by segment replacement (SSAI) or by
// EXT-X-DATERANGE interstitial signaling (SGAI).
package hlsrewrite

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Segment is one media segment entry in a variant playlist.
type Segment struct {
	URI             string
	DurationSec     float64
	Title           string
	PDT             time.Time
	HasPDT          bool
	IsDiscontinuity bool
	// RawExtraTags carries any tag lines (other than EXTINF/DISCONTINUITY/
	// PROGRAM-DATE-TIME) immediately preceding this segment's URI, emitted
	// verbatim ahead of the segment on output (e.g. EXT-X-KEY, EXT-X-MAP).
	RawExtraTags []string
}

// ManifestWindow is the arena-style parsed form of a live variant playlist:
// an indexed segment list plus side tables, never an arbitrary object graph
// (spec §9 "arena + indices").
type ManifestWindow struct {
	Version                int
	TargetDurationSec      int
	MediaSequence          int64
	DiscontinuitySequence  int64
	HasDiscontinuitySeq    bool
	Segments               []Segment
	EndList                bool

	// pdtByIndex and discontinuityAt mirror what's already on Segments but
	// are kept as explicit side tables per the arena-and-indices design: the
	// rewriter consults them instead of re-scanning Segments.
	pdtByIndex      map[int]time.Time
	discontinuityAt map[int]bool
}

var (
	reExtInf   = regexp.MustCompile(`^#EXTINF:([0-9.]+)(?:,(.*))?$`)
	reTargetD  = regexp.MustCompile(`^#EXT-X-TARGETDURATION:(\d+)$`)
	reVersion  = regexp.MustCompile(`^#EXT-X-VERSION:(\d+)$`)
	reMediaSeq = regexp.MustCompile(`^#EXT-X-MEDIA-SEQUENCE:(\d+)$`)
	reDiscSeq  = regexp.MustCompile(`^#EXT-X-DISCONTINUITY-SEQUENCE:(\d+)$`)
	rePDT      = regexp.MustCompile(`^#EXT-X-PROGRAM-DATE-TIME:(.+)$`)
)

// ParseVariant parses a media (variant) playlist's text into a
// ManifestWindow. Tags it doesn't recognize for rewrite purposes (EXT-X-KEY,
// EXT-X-MAP, EXT-X-DATERANGE not related to SCTE-35, etc.) are preserved
// verbatim as RawExtraTags ahead of the following segment.
func ParseVariant(text string) (*ManifestWindow, error) {
	win := &ManifestWindow{
		pdtByIndex:      make(map[int]time.Time),
		discontinuityAt: make(map[int]bool),
	}

	lines := splitLines(text)
	var pendingDuration float64
	var pendingTitle string
	var pendingDurationSet bool
	var pendingPDT time.Time
	var pendingHasPDT bool
	var pendingDiscontinuity bool
	var pendingExtra []string

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		switch {
		case line == "#EXTM3U":
			continue
		case strings.HasPrefix(line, "#EXT-X-VERSION:"):
			if m := reVersion.FindStringSubmatch(line); m != nil {
				win.Version, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if m := reTargetD.FindStringSubmatch(line); m != nil {
				win.TargetDurationSec, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if m := reMediaSeq.FindStringSubmatch(line); m != nil {
				v, _ := strconv.ParseInt(m[1], 10, 64)
				win.MediaSequence = v
			}
		case strings.HasPrefix(line, "#EXT-X-DISCONTINUITY-SEQUENCE:"):
			if m := reDiscSeq.FindStringSubmatch(line); m != nil {
				v, _ := strconv.ParseInt(m[1], 10, 64)
				win.DiscontinuitySequence = v
				win.HasDiscontinuitySeq = true
			}
		case line == "#EXT-X-DISCONTINUITY":
			pendingDiscontinuity = true
		case strings.HasPrefix(line, "#EXT-X-PROGRAM-DATE-TIME:"):
			if m := rePDT.FindStringSubmatch(line); m != nil {
				t, err := time.Parse(time.RFC3339, strings.TrimSpace(m[1]))
				if err == nil {
					pendingPDT = t
					pendingHasPDT = true
				}
			}
		case line == "#EXT-X-ENDLIST":
			win.EndList = true
		case strings.HasPrefix(line, "#EXTINF:"):
			if m := reExtInf.FindStringSubmatch(line); m != nil {
				pendingDuration, _ = strconv.ParseFloat(m[1], 64)
				pendingTitle = ""
				if len(m) > 2 {
					pendingTitle = m[2]
				}
				pendingDurationSet = true
			}
		case strings.HasPrefix(line, "#"):
			pendingExtra = append(pendingExtra, line)
		default:
			// URI line: terminates the current segment.
			seg := Segment{
				URI:             line,
				IsDiscontinuity: pendingDiscontinuity,
				RawExtraTags:    pendingExtra,
			}
			if pendingDurationSet {
				seg.DurationSec = pendingDuration
				seg.Title = pendingTitle
			}
			if pendingHasPDT {
				seg.PDT = pendingPDT
				seg.HasPDT = true
			}
			idx := len(win.Segments)
			win.Segments = append(win.Segments, seg)
			if seg.HasPDT {
				win.pdtByIndex[idx] = seg.PDT
			}
			if seg.IsDiscontinuity {
				win.discontinuityAt[idx] = true
			}

			pendingDuration = 0
			pendingTitle = ""
			pendingDurationSet = false
			pendingHasPDT = false
			pendingDiscontinuity = false
			pendingExtra = nil
		}
	}
	return win, nil
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// FirstPDTAtOrAfter returns the index of the first segment whose PDT is >=
// target, or -1 if no such segment exists in the window.
func (w *ManifestWindow) FirstPDTAtOrAfter(target time.Time) int {
	for i, seg := range w.Segments {
		if seg.HasPDT && !seg.PDT.Before(target) {
			return i
		}
	}
	return -1
}

// NextPDTFrom searches forward from startIdx (exclusive) for the next
// segment carrying a PDT tag, bounded by maxLines (counting segment entries
// as one "line" each, matching spec §4.2's line-count default) or, if
// maxCumulativeSec > 0, bounded instead by cumulative EXTINF seconds — the
// safer semantics per spec §9 Open Question 1. Returns (-1, 0) if no PDT is
// found within the bound.
func (w *ManifestWindow) NextPDTFrom(startIdx int, maxLines int, maxCumulativeSec float64) (idx int, cumulativeSec float64) {
	var cum float64
	for i := startIdx + 1; i < len(w.Segments); i++ {
		cum += w.Segments[i].DurationSec
		if w.Segments[i].HasPDT {
			return i, cum
		}
		if maxCumulativeSec > 0 {
			if cum >= maxCumulativeSec {
				return -1, cum
			}
		} else if i-startIdx >= maxLines {
			return -1, cum
		}
	}
	return -1, cum
}
