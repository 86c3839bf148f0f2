package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	_ "net/http/pprof"

	"github.com/liveadstitch/ssai-core/pkg/beacon"
	"github.com/liveadstitch/ssai-core/pkg/coordinator"
	"github.com/liveadstitch/ssai-core/pkg/decision"
)

// Server is the viewer-facing HTTP edge for the SSAI/SGAI core: it resolves
// per-channel config, delegates every playlist request to the Channel
// Coordinator, and proxies segment requests straight through to origin.
type Server struct {
	Router *chi.Mux
	Cfg    *ServerConfig

	Coordinator  *coordinator.Coordinator
	DecisionEng  *decision.Engine
	Producer     *beacon.Producer
	ChannelCfg   *channelConfigCache
	OriginClient *http.Client
	Auth         *bearerAuth
	ManualCues   *manualCueStore

	reqLimiter *IPRequestLimiter
}

func (s *Server) healthzHandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]bool{"ok": true}, http.StatusOK)
}

// jsonResponse marshals message and writes an HTTP response with code.
//
// Don't add any more content after this since Content-Length is set.
func (s *Server) jsonResponse(w http.ResponseWriter, message any, code int) {
	raw, err := json.Marshal(message)
	if err != nil {
		http.Error(w, fmt.Sprintf("{\"message\": %q}", err.Error()), http.StatusInternalServerError)
		slog.Error(err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(code)
	if _, err := w.Write(raw); err != nil {
		slog.Error("could not write HTTP response", "err", err)
	}
}

func (s *Server) writeHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	he, ok := err.(*httpError)
	if !ok {
		he = newHTTPError(kindValidation, http.StatusInternalServerError, "%s", err.Error())
	}
	slog.Error("request failed", "path", r.URL.Path, "kind", he.kind, "error", he.msg, "status", he.statusCode)
	observeComponent("http_edge", string(he.kind))
	http.Error(w, he.msg, he.statusCode)
}
