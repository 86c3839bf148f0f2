package coordinator

// resolveInsertionMode implements spec §4.4's insertion-mode priority list:
// a mode pinned by a manual cue, then explicit query override, then channel
// config, then Apple-platform feature
// detection, then SSAI as the broadest-compatibility fallback.
func resolveInsertionMode(req ViewerRequest, cfg ChannelConfig, pinnedMode string) string {
	if pinnedMode == "ssai" || pinnedMode == "sgai" {
		return pinnedMode
	}
	if req.ModeOverride == "ssai" || req.ModeOverride == "sgai" {
		return req.ModeOverride
	}
	if cfg.Mode == "ssai" || cfg.Mode == "sgai" {
		return cfg.Mode
	}
	if req.ClientIsApple {
		return "sgai"
	}
	return "ssai"
}
