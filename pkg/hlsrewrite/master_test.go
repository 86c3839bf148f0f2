package hlsrewrite

import (
	"strings"
	"testing"
)

func sampleMasterText() string {
	return strings.Join([]string{
		"#EXTM3U",
		`#EXT-X-STREAM-INF:BANDWIDTH=6000000,RESOLUTION=1920x1080,CODECS="avc1.640028,mp4a.40.2"`,
		"hd.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=1280x720,CODECS="avc1.4d401f,mp4a.40.2"`,
		"mid.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=128000,CODECS="mp4a.40.2"`,
		"audio.m3u8",
		"",
	}, "\n")
}

func TestParseMasterClassification(t *testing.T) {
	m, err := ParseMaster(sampleMasterText())
	if err != nil {
		t.Fatalf("ParseMaster: %v", err)
	}
	if len(m.Variants) != 3 {
		t.Fatalf("len(Variants) = %d, want 3", len(m.Variants))
	}
	if !m.Variants[0].IsVideo || m.Variants[0].IsAudioOnly {
		t.Error("expected hd.m3u8 variant classified as video")
	}
	if !m.Variants[2].IsAudioOnly {
		t.Error("expected audio.m3u8 variant classified as audio-only")
	}
}

func TestVideoBitrateLadderFiltersAudioAndLowBitrate(t *testing.T) {
	m, _ := ParseMaster(sampleMasterText())
	ladder := m.VideoBitrateLadder()
	if len(ladder) != 2 {
		t.Fatalf("len(ladder) = %d, want 2", len(ladder))
	}
	for _, bw := range ladder {
		if bw < minReportedBitrateBps {
			t.Errorf("ladder contains sub-threshold bitrate %d", bw)
		}
	}
}

func TestAudioOnlyVariants(t *testing.T) {
	m, _ := ParseMaster(sampleMasterText())
	aud := m.AudioOnlyVariants()
	if len(aud) != 1 || aud[0].URI != "audio.m3u8" {
		t.Fatalf("AudioOnlyVariants = %+v", aud)
	}
}

func TestIsAudioOnlyViewer(t *testing.T) {
	if !IsAudioOnlyViewer(128000, "audio.m3u8", `mp4a.40.2`) {
		t.Error("expected low-bitrate viewer to be classified audio-only")
	}
	if IsAudioOnlyViewer(6000000, "hd.m3u8", `avc1.640028,mp4a.40.2`) {
		t.Error("expected high-bitrate video-codec viewer to not be audio-only")
	}
}

func TestViewerBitrateFromURI(t *testing.T) {
	bps, ok := ViewerBitrateFromURI("seg/video=2000000/seg1.ts")
	if !ok || bps != 2000000 {
		t.Errorf("ViewerBitrateFromURI = %d,%v want 2000000,true", bps, ok)
	}
	bps, ok = ViewerBitrateFromURI("seg1.ts?bitrate=500000")
	if !ok || bps != 500000 {
		t.Errorf("ViewerBitrateFromURI = %d,%v want 500000,true", bps, ok)
	}
	if _, ok := ViewerBitrateFromURI("seg1.ts"); ok {
		t.Error("expected no bitrate hint found")
	}
}
