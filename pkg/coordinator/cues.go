package coordinator

// mergeCues implements spec §4.4's cue priority: manual > SCTE-35 >
// schedule. Only the manual cue and the schedule cue are singular by
// construction; SCTE-35 cues are deduplicated against alreadyProcessed so a
// cue already folded into the current break doesn't get treated as new.
func mergeCues(req ViewerRequest, cfg ChannelConfig, alreadyProcessed func(id string) bool) *Cue {
	if req.ManualCue != nil && !req.ManualCue.Stop {
		c := *req.ManualCue
		c.Source = CueSourceManual
		return &c
	}

	if cfg.SCTE35AutoInsert {
		for _, c := range req.SCTE35Cues {
			if alreadyProcessed != nil && alreadyProcessed(c.ID) {
				cc := c
				cc.Source = CueSourceSCTE35
				return &cc
			}
		}
		for _, c := range req.SCTE35Cues {
			cc := c
			cc.Source = CueSourceSCTE35
			return &cc
		}
	}

	if cfg.TimeBasedAutoInsert && req.ScheduleCue != nil {
		c := *req.ScheduleCue
		c.Source = CueSourceSchedule
		return &c
	}

	return nil
}

// activeStopCue reports whether req carries an explicit stop signal: a
// manual stop, or any SCTE-35 cue marked Stop.
func activeStopCue(req ViewerRequest) bool {
	if req.ManualCue != nil && req.ManualCue.Stop {
		return true
	}
	for _, c := range req.SCTE35Cues {
		if c.Stop {
			return true
		}
	}
	return false
}
