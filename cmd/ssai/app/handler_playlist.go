package app

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/liveadstitch/ssai-core/pkg/collab"
	"github.com/liveadstitch/ssai-core/pkg/coordinator"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

// playlistHandlerFunc implements GET /{org}/{channel}/{variant}.m3u8 (spec
// §6.1): fetch the origin variant, delegate insertion to the Channel
// Coordinator, and respond with the rewritten (or pass-through) manifest.
func (s *Server) playlistHandlerFunc(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	channel := chi.URLParam(r, "channel")
	variant := chi.URLParam(r, "variant")

	ctx := r.Context()
	cfg, err := s.ChannelCfg.get(ctx, org, channel)
	if err != nil {
		s.writeHTTPError(w, r, newHTTPError(kindValidation, http.StatusNotFound, "unknown channel %s/%s: %v", org, channel, err))
		return
	}

	body, err := s.fetchOrigin(ctx, cfg.OriginURL, variant+".m3u8")
	if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}

	viewerBitrateBps := bitrateFromQuery(r)
	if viewerBitrateBps == 0 {
		if bps, ok := hlsrewrite.ViewerBitrateFromURI(variant); ok {
			viewerBitrateBps = bps
		}
	}
	audioOnly := false
	if v := r.URL.Query().Get("audioOnly"); v != "" {
		audioOnly = v == "1"
	} else {
		audioOnly = hlsrewrite.IsAudioOnlyViewer(viewerBitrateBps, variant, r.URL.Query().Get("codecs"))
	}

	deadline, hasDeadline := ctx.Deadline()
	req := coordinator.ViewerRequest{
		Org:              org,
		Channel:          channel,
		Variant:          variant,
		Now:              time.Now(),
		ViewerBitrateBps: viewerBitrateBps,
		AudioOnly:        audioOnly,
		ModeOverride:     r.URL.Query().Get("mode"),
		ClientIsApple:    isAppleClient(r.UserAgent()),
		OriginManifest:   string(body),
		ChannelConfig:    toCoordinatorConfig(cfg, s.Cfg.BreakGraceMs),
	}
	if hasDeadline {
		req.Deadline = deadline
	}

	manifest, diag := s.Coordinator.Handle(ctx, req)
	if len(diag.Warnings) > 0 {
		observeComponent("coordinator", "warning")
	}
	if len(diag.Errors) > 0 {
		observeComponent("coordinator", "error")
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", cacheControlFor(cfg))
	w.Header().Set("ETag", etagFor(cfg.ConfigVersion, req.Now))
	w.Header().Set("X-SSAI-Mode", manifest.Mode)
	_, _ = w.Write([]byte(manifest.Text))
}

func bitrateFromQuery(r *http.Request) int {
	v := r.URL.Query().Get("bitrate")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func isAppleClient(userAgent string) bool {
	for _, marker := range []string{"AppleCoreMedia", "iPhone", "iPad", "Macintosh", "AppleTV"} {
		if strings.Contains(userAgent, marker) {
			return true
		}
	}
	return false
}

func toCoordinatorConfig(cfg *collab.ChannelConfig, breakGraceMs int) coordinator.ChannelConfig {
	return coordinator.ChannelConfig{
		Mode:                 cfg.Mode,
		SCTE35AutoInsert:     cfg.SCTE35AutoInsert,
		TimeBasedAutoInsert:  cfg.TimeBasedAutoInsert,
		Tier:                 cfg.Tier,
		BreakGraceMs:         int64(breakGraceMs),
		SlatePodID:           cfg.SlatePodID,
		VASTURL:              cfg.VASTURL,
		DefaultAdDurationSec: cfg.DefaultAdDurationSec,
	}
}

func cacheControlFor(cfg *collab.ChannelConfig) string {
	maxAge := cfg.CacheControlMaxAgeSec
	if maxAge <= 0 {
		maxAge = 2
	}
	return fmt.Sprintf("max-age=%d", maxAge)
}

// etagFor buckets the current time into a 2-second window so viewers
// polling within the same window get a stable ETag, per spec §6.1.
func etagFor(configVersion int64, now time.Time) string {
	bucket := (now.Unix() / 2) * 2
	return fmt.Sprintf(`"%d-%d"`, configVersion, bucket)
}
