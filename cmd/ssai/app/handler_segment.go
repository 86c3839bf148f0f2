package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// segmentHandlerFunc implements GET /{org}/{channel}/{segment}: pass-through
// proxy to origin, no decoding (spec §6.1 — the rewriter only ever emits
// origin or ad-pod segment URIs, never synthesizes one).
func (s *Server) segmentHandlerFunc(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	channel := chi.URLParam(r, "channel")
	segment := chi.URLParam(r, "segment")

	cfg, err := s.ChannelCfg.get(r.Context(), org, channel)
	if err != nil {
		notFoundJSON(w, "unknown channel")
		return
	}
	s.proxySegment(w, r, cfg.OriginURL, segment)
}
