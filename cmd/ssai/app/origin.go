package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// fetchOrigin retrieves path (relative to cfg.OriginURL) from the channel's
// upstream origin. Spec §7: any failure here is an OriginFetchError and
// must return 502, never a fabricated playlist.
func (s *Server) fetchOrigin(ctx context.Context, originURL, path string) ([]byte, error) {
	url := strings.TrimSuffix(originURL, "/") + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newHTTPError(kindOriginFetch, http.StatusBadGateway, "origin request build failed: %v", err)
	}
	resp, err := s.OriginClient.Do(req)
	if err != nil {
		return nil, newHTTPError(kindOriginFetch, http.StatusBadGateway, "origin fetch failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(kindOriginFetch, http.StatusBadGateway, "origin returned status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newHTTPError(kindOriginFetch, http.StatusBadGateway, "origin body read failed: %v", err)
	}
	return body, nil
}

func (s *Server) proxySegment(w http.ResponseWriter, r *http.Request, originURL, segment string) {
	url := strings.TrimSuffix(originURL, "/") + "/" + strings.TrimPrefix(segment, "/")
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		s.writeHTTPError(w, r, newHTTPError(kindOriginFetch, http.StatusBadGateway, "segment request build failed: %v", err))
		return
	}
	resp, err := s.OriginClient.Do(req)
	if err != nil {
		s.writeHTTPError(w, r, newHTTPError(kindOriginFetch, http.StatusBadGateway, "segment fetch failed: %v", err))
		return
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		observeComponent("segment_proxy", "copy_error")
	}
}

func notFoundJSON(w http.ResponseWriter, msg string) {
	http.Error(w, fmt.Sprintf("{\"message\": %q}", msg), http.StatusNotFound)
}
