package hlsrewrite

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a ManifestWindow back to RFC 8216 text, LF line endings,
// tag ordering preserved (header tags, then one block per segment).
func (w *ManifestWindow) Serialize() string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	if w.Version > 0 {
		fmt.Fprintf(&b, "#EXT-X-VERSION:%d\n", w.Version)
	}
	if w.TargetDurationSec > 0 {
		fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", w.TargetDurationSec)
	}
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", w.MediaSequence)
	if w.HasDiscontinuitySeq {
		fmt.Fprintf(&b, "#EXT-X-DISCONTINUITY-SEQUENCE:%d\n", w.DiscontinuitySequence)
	}
	writeSegments(&b, w.Segments)
	if w.EndList {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

func writeSegments(b *strings.Builder, segs []Segment) {
	for _, seg := range segs {
		for _, extra := range seg.RawExtraTags {
			b.WriteString(extra)
			b.WriteByte('\n')
		}
		if seg.IsDiscontinuity {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		if seg.HasPDT {
			b.WriteString("#EXT-X-PROGRAM-DATE-TIME:")
			b.WriteString(seg.PDT.Format(pdtLayout))
			b.WriteByte('\n')
		}
		b.WriteString("#EXTINF:")
		b.WriteString(strconv.FormatFloat(seg.DurationSec, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(seg.Title)
		b.WriteByte('\n')
		b.WriteString(seg.URI)
		b.WriteByte('\n')
	}
}

const pdtLayout = "2006-01-02T15:04:05.000Z07:00"
