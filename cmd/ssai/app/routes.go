package app

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/liveadstitch/ssai-core/pkg/logging"
)

// Routes defines dispatches for all routes, adapted from the teacher's
// routes.go but with the teacher's DASH-specific routes replaced by the
// multi-tenant playlist/segment/cue routes of spec §6.1.
func (s *Server) Routes(ctx context.Context) error {
	for _, route := range logging.LogRoutes {
		s.Router.MethodFunc(route.Method, route.Path, route.Handler)
	}
	s.Router.Mount("/debug", middleware.Profiler())
	s.Router.MethodFunc("GET", "/healthz", s.healthzHandlerFunc)

	s.Router.Route("/", mountCueAPI(s))
	s.Router.MethodFunc("GET", "/{org}/{channel}/{variant}.m3u8", s.playlistHandlerFunc)
	s.Router.MethodFunc("GET", "/{org}/{channel}/{segment}", s.segmentHandlerFunc)

	return nil
}
