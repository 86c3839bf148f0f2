package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/liveadstitch/ssai-core/pkg/coordinator"
)

// CuePostBody is the body of POST /{org}/{channel}/cue, adapted from the
// teacher's huma-typed CMAF ingest request shape (api.go).
type CuePostBody struct {
	DurationSec float64 `json:"duration_sec,omitempty" doc:"Ad break duration in seconds" example:"30"`
	PodID       string  `json:"pod_id,omitempty" doc:"Pre-resolved ad pod identifier in the object store"`
	PodURL      string  `json:"pod_url,omitempty" doc:"Ad pod location, used as the pinned pod identifier when pod_id is empty"`
	Stop        bool    `json:"stop,omitempty" doc:"Stop the current break immediately"`
}

type cuePathParams struct {
	Org     string `path:"org" doc:"Tenant organization slug"`
	Channel string `path:"channel" doc:"Channel slug"`
}

type CuePostRequest struct {
	cuePathParams
	Body CuePostBody
}

type CuePostResponse struct {
	Body struct {
		CueID string `json:"cue_id"`
	}
}

func createCueHdlr(s *Server) func(ctx context.Context, req *CuePostRequest) (*CuePostResponse, error) {
	return func(ctx context.Context, req *CuePostRequest) (*CuePostResponse, error) {
		if !req.Body.Stop && req.Body.DurationSec <= 0 {
			return nil, huma.Error400BadRequest("duration_sec must be > 0 unless stop is set")
		}
		cueID := fmt.Sprintf("manual-%s-%s-%d", req.Org, req.Channel, time.Now().UnixNano())
		cue := &coordinator.Cue{
			ID:          cueID,
			DurationSec: req.Body.DurationSec,
			StartPDT:    time.Now(),
			Stop:        req.Body.Stop,
			PinnedPodID: firstNonEmpty(req.Body.PodID, req.Body.PodURL),
		}
		s.ManualCues.set(req.Org, req.Channel, cue)

		resp := &CuePostResponse{}
		resp.Body.CueID = cueID
		return resp, nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// mountCueAPI registers the typed cue operation under r using huma, grounded
// on the teacher's createRouteAPI (api.go).
func mountCueAPI(s *Server) func(r chi.Router) {
	return func(r chi.Router) {
		config := huma.DefaultConfig("SSAI Core manual cue API", "1.0.0")
		api := humachi.New(r, config)

		huma.Register(api, huma.Operation{
			OperationID: "post-manual-cue",
			Method:      http.MethodPost,
			Path:        "/{org}/{channel}/cue",
			Summary:     "Start or stop a manual ad break",
			Tags:        []string{"cue"},
			Errors:      []int{400},
		}, createCueHdlr(s))
	}
}
