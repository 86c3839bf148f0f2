package scte35

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseSegmentationTypeID maps the X-SEGMENTATION-TYPE-ID attribute
// (decimal or 0x-prefixed hex in the wild) to its numeric value.
func parseSegmentationTypeID(raw string) (uint8, error) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(strings.ToLower(raw), "0x") {
		raw = raw[2:]
		base = 16
	}
	v, err := strconv.ParseUint(raw, base, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// dateRangeAttrs is a parsed #EXT-X-DATERANGE tag's attribute list.
type dateRangeAttrs map[string]string

// parseDateRangeLine splits the attribute-list portion of a tag
// (after the colon) into a map, honoring quoted-string values.
func parseDateRangeLine(line string) dateRangeAttrs {
	attrs := make(dateRangeAttrs)
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return attrs
	}
	rest := line[idx+1:]
	for len(rest) > 0 {
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(rest[:eq])
		rest = rest[eq+1:]
		var val string
		if len(rest) > 0 && rest[0] == '"' {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				val = rest[1:]
				rest = ""
			} else {
				val = rest[1 : end+1]
				rest = rest[end+2:]
				if comma := strings.IndexByte(rest, ','); comma == 0 {
					rest = rest[1:]
				}
			}
		} else {
			comma := strings.IndexByte(rest, ',')
			if comma < 0 {
				val = rest
				rest = ""
			} else {
				val = rest[:comma]
				rest = rest[comma+1:]
			}
		}
		attrs[strings.ToUpper(key)] = val
	}
	return attrs
}

// ParseDateRangeAttrs normalizes a single #EXT-X-DATERANGE tag line into a
// Signal. It returns (nil, diagnostics-with-no-errors) when the tag is not
// SCTE-35-related (no recognized out/in markers), which is not an error —
// most DATERANGE tags in a live manifest carry unrelated metadata.
func ParseDateRangeAttrs(line string, channelDefaultDuration time.Duration) (*Signal, Diagnostics) {
	var d Diagnostics
	attrs := parseDateRangeLine(line)

	isStart, isStop := classifyDateRange(attrs)
	if !isStart && !isStop {
		return nil, d
	}

	s := &Signal{
		ID:     attrs["ID"],
		Type:   TypeSpliceInsert,
		Source: SourceDateRangeAttr,
		IsStop: isStop,
	}

	if start, ok := attrs["START-DATE"]; ok {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			// Leave StartPDT zero; Validate will report it as unparseable.
		} else {
			s.StartPDT = t
		}
	}

	if !isStop {
		dur, present := durationFromAttrs(attrs)
		if present {
			s.DurationSec = dur
		} else if channelDefaultDuration > 0 {
			def := channelDefaultDuration.Seconds()
			s.DurationSec = &def
		}
	}

	s.AutoReturn = true // attribute form has no explicit auto-return signal; default true per common practice

	return s, d
}

// classifyDateRange decides whether a DATERANGE tag is an ad-break start or
// end marker per spec §4.1's recognition rules.
func classifyDateRange(attrs dateRangeAttrs) (isStart, isStop bool) {
	if _, ok := attrs["SCTE35-OUT"]; ok {
		isStart = true
	}
	if class, ok := attrs["CLASS"]; ok && class == "com.apple.hls.scte35.out" {
		isStart = true
	}
	if tid, ok := attrs["X-SEGMENTATION-TYPE-ID"]; ok {
		if v, err := parseSegmentationTypeID(tid); err == nil {
			if breakStartSegmentationTypes[v] {
				isStart = true
			}
			if breakEndSegmentationTypes[v] {
				isStop = true
			}
		}
	}
	if _, ok := attrs["SCTE35-IN"]; ok {
		isStop = true
	}
	if class, ok := attrs["CLASS"]; ok && class == "com.apple.hls.scte35.in" {
		isStop = true
	}
	return isStart, isStop
}

// durationFromAttrs reads DURATION, else PLANNED-DURATION, else
// X-BREAK-DURATION, returning (value, true) only if one of those keys was
// present — distinguishing "absent" from "present and zero" per spec §4.1
// scenario E.
func durationFromAttrs(attrs dateRangeAttrs) (*float64, bool) {
	for _, key := range []string{"DURATION", "PLANNED-DURATION", "X-BREAK-DURATION"} {
		raw, ok := attrs[key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return &v, true
	}
	return nil, false
}

// InlineSpliceB64 extracts a DATERANGE tag's binary splice_info_section
// payload, checking SCTE35-CMD, then SCTE35-OUT, then SCTE35-IN in that
// order (the first one present wins). It returns "" when the line carries
// none of those attributes, meaning the tag must be decoded from its plain
// attributes instead via ParseDateRangeAttrs.
func InlineSpliceB64(line string) string {
	attrs := parseDateRangeLine(line)
	for _, key := range []string{"SCTE35-CMD", "SCTE35-OUT", "SCTE35-IN"} {
		if v, ok := attrs[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// FormatDateRange serializes a Signal back into an EXT-X-DATERANGE tag body
// for the attribute round-trip property (spec §8): semantic fields survive,
// attribute order is not guaranteed to match the original.
func FormatDateRange(s *Signal) string {
	var b strings.Builder
	b.WriteString("#EXT-X-DATERANGE:")
	fmt.Fprintf(&b, `ID="%s"`, s.ID)
	if s.IsStop {
		b.WriteString(`,CLASS="com.apple.hls.scte35.in"`)
	} else {
		b.WriteString(`,CLASS="com.apple.hls.scte35.out"`)
	}
	if !s.StartPDT.IsZero() {
		fmt.Fprintf(&b, `,START-DATE="%s"`, s.StartPDT.Format(time.RFC3339))
	}
	if s.DurationSec != nil {
		fmt.Fprintf(&b, `,DURATION=%.3f`, *s.DurationSec)
	}
	return b.String()
}
