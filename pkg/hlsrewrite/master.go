package hlsrewrite

import (
	"regexp"
	"strconv"
	"strings"
)

// Variant is one #EXT-X-STREAM-INF entry in a master playlist.
type Variant struct {
	URI         string
	BandwidthBps int
	Resolution  string
	Codecs      string
	IsVideo     bool
	IsAudioOnly bool
}

// MasterPlaylist is the parsed form of a multivariant playlist.
type MasterPlaylist struct {
	Variants []Variant
}

var (
	reStreamInf  = regexp.MustCompile(`^#EXT-X-STREAM-INF:(.*)$`)
	reAttrPair   = regexp.MustCompile(`([A-Za-z0-9_-]+)=("[^"]*"|[^,]*)`)
	videoCodecRe = regexp.MustCompile(`(?i)avc|hvc|hev|vp0?[89]`)
)

// ParseMaster parses a multivariant (master) playlist and classifies each
// variant as video or audio-only per spec §4.2: a variant carrying a
// RESOLUTION attribute, or whose CODECS mentions an avc/hvc/vp family, is
// video; everything else is audio-only and is retained (not discarded) for
// audio-only viewer matching.
func ParseMaster(text string) (*MasterPlaylist, error) {
	m := &MasterPlaylist{}
	lines := splitLines(text)
	var pendingAttrs map[string]string

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			continue
		}
		if match := reStreamInf.FindStringSubmatch(line); match != nil {
			pendingAttrs = parseAttrList(match[1])
			continue
		}
		if pendingAttrs != nil && !strings.HasPrefix(line, "#") {
			v := Variant{URI: line}
			if bw, ok := pendingAttrs["BANDWIDTH"]; ok {
				v.BandwidthBps, _ = strconv.Atoi(bw)
			}
			v.Resolution = pendingAttrs["RESOLUTION"]
			v.Codecs = strings.Trim(pendingAttrs["CODECS"], `"`)
			v.IsVideo = v.Resolution != "" || videoCodecRe.MatchString(v.Codecs)
			v.IsAudioOnly = !v.IsVideo
			m.Variants = append(m.Variants, v)
			pendingAttrs = nil
		}
	}
	return m, nil
}

func parseAttrList(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range reAttrPair.FindAllStringSubmatch(s, -1) {
		key := strings.ToUpper(m[1])
		val := strings.Trim(m[2], `"`)
		out[key] = val
	}
	return out
}

const (
	minReportedBitrateBps = 200_000
	audioOnlyBitrateCeilingBps = 256_000
)

// VideoBitrateLadder returns BANDWIDTH values suitable for reporting as
// "video bitrates": audio-only variants and anything under 200 kbps are
// filtered out, per spec §4.2. The underlying Variants slice still retains
// audio-only entries for ad matching; this is purely a reporting view.
func (m *MasterPlaylist) VideoBitrateLadder() []int {
	var out []int
	for _, v := range m.Variants {
		if v.IsAudioOnly || v.BandwidthBps < minReportedBitrateBps {
			continue
		}
		out = append(out, v.BandwidthBps)
	}
	return out
}

// AudioOnlyVariants returns the subset of variants retained for audio-only
// viewer paths.
func (m *MasterPlaylist) AudioOnlyVariants() []Variant {
	var out []Variant
	for _, v := range m.Variants {
		if v.IsAudioOnly {
			out = append(out, v)
		}
	}
	return out
}

// IsAudioOnlyViewer decides whether a viewer's variant should be treated as
// audio-only, per spec §4.2's bitrate matching rule: bitrate at or below
// 256 kbps, or a variant URI/name audio marker with no video codec present.
func IsAudioOnlyViewer(viewerBitrateBps int, variantURI, codecs string) bool {
	if viewerBitrateBps > 0 && viewerBitrateBps <= audioOnlyBitrateCeilingBps {
		return true
	}
	if videoCodecRe.MatchString(codecs) {
		return false
	}
	return strings.Contains(strings.ToLower(variantURI), "audio")
}

// ViewerBitrateFromURI extracts a bitrate hint from a variant request URI,
// recognizing a `video=<bps>` query-style path component or a `?bitrate=`
// query parameter.
func ViewerBitrateFromURI(uri string) (bps int, ok bool) {
	if idx := strings.Index(uri, "bitrate="); idx >= 0 {
		rest := uri[idx+len("bitrate="):]
		rest = cutAtDelim(rest)
		if v, err := strconv.Atoi(rest); err == nil {
			return v, true
		}
	}
	if idx := strings.Index(uri, "video="); idx >= 0 {
		rest := uri[idx+len("video="):]
		rest = cutAtDelim(rest)
		if v, err := strconv.Atoi(rest); err == nil {
			return v, true
		}
	}
	return 0, false
}

func cutAtDelim(s string) string {
	for i, r := range s {
		if r == '&' || r == '/' || r == '?' || r == ',' {
			return s[:i]
		}
	}
	return s
}
