package decision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

type fakeDoer struct {
	byURL map[string]string
	calls map[string]int
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{byURL: make(map[string]string), calls: make(map[string]int)}
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	f.calls[url]++
	body, ok := f.byURL[url]
	if !ok {
		return &http.Response{StatusCode: 404, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

const inlineVAST = `<?xml version="1.0"?>
<VAST version="3.0">
  <Ad id="ad1">
    <InLine>
      <Impression><![CDATA[https://track.example.com/imp]]></Impression>
      <Creatives>
        <Creative>
          <Linear>
            <TrackingEvents>
              <Tracking event="start"><![CDATA[https://track.example.com/start]]></Tracking>
            </TrackingEvents>
            <MediaFiles>
              <MediaFile type="application/vnd.apple.mpegurl" bitrate="2000"><![CDATA[https://ads.example.com/hd.m3u8]]></MediaFile>
              <MediaFile type="application/vnd.apple.mpegurl" bitrate="800"><![CDATA[https://ads.example.com/low.m3u8]]></MediaFile>
              <MediaFile type="video/mp4" bitrate="4000"><![CDATA[https://ads.example.com/uhd.mp4]]></MediaFile>
            </MediaFiles>
          </Linear>
        </Creative>
      </Creatives>
    </InLine>
  </Ad>
</VAST>`

func wrapperVAST(nextURL string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<VAST version="3.0">
  <Ad id="wrap1">
    <Wrapper>
      <VASTAdTagURI><![CDATA[%s]]></VASTAdTagURI>
      <Impression><![CDATA[https://track.example.com/wrapper-imp]]></Impression>
    </Wrapper>
  </Ad>
</VAST>`, nextURL)
}

func TestVASTResolverInlinePrefersHLSMime(t *testing.T) {
	doer := newFakeDoer()
	doer.byURL["https://vast.example.com/tag"] = inlineVAST
	r := NewVASTResolver(doer, NewVASTCache(0))

	pod, diag := r.Resolve(context.Background(), "https://vast.example.com/tag", 0, false)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if len(pod.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2 (HLS renditions only, mp4 excluded)", len(pod.Items))
	}
	if pod.Items[0].BitrateBps > pod.Items[1].BitrateBps {
		t.Error("expected items sorted by ascending bitrate")
	}
	for _, it := range pod.Items {
		if it.PlaylistURI == "https://ads.example.com/uhd.mp4" {
			t.Error("expected mp4 fallback excluded when HLS renditions exist")
		}
	}
}

func TestVASTResolverFollowsWrapperChain(t *testing.T) {
	doer := newFakeDoer()
	doer.byURL["https://vast.example.com/wrap"] = wrapperVAST("https://vast.example.com/tag")
	doer.byURL["https://vast.example.com/tag"] = inlineVAST
	r := NewVASTResolver(doer, NewVASTCache(0))

	pod, diag := r.Resolve(context.Background(), "https://vast.example.com/wrap", 0, false)
	if !diag.OK() {
		t.Fatalf("unexpected errors: %v", diag.Errors)
	}
	if len(pod.Items) == 0 {
		t.Fatal("expected items resolved through the wrapper chain")
	}
}

func TestVASTResolverCycleGuard(t *testing.T) {
	doer := newFakeDoer()
	doer.byURL["https://vast.example.com/a"] = wrapperVAST("https://vast.example.com/b")
	doer.byURL["https://vast.example.com/b"] = wrapperVAST("https://vast.example.com/a")
	r := NewVASTResolver(doer, NewVASTCache(0))

	_, diag := r.Resolve(context.Background(), "https://vast.example.com/a", 0, false)
	if diag.OK() {
		t.Fatal("expected a cycle-detection error")
	}
}

func TestVASTResolverExceedsWrapperDepth(t *testing.T) {
	doer := newFakeDoer()
	depth := maxWrapperDepth + 2
	for i := 0; i < depth; i++ {
		url := fmt.Sprintf("https://vast.example.com/chain%d", i)
		next := fmt.Sprintf("https://vast.example.com/chain%d", i+1)
		doer.byURL[url] = wrapperVAST(next)
	}
	r := NewVASTResolver(doer, NewVASTCache(0))

	_, diag := r.Resolve(context.Background(), "https://vast.example.com/chain0", 0, false)
	if diag.OK() {
		t.Fatal("expected an over-depth error")
	}
}

func TestVASTResolverTierFiltering(t *testing.T) {
	doer := newFakeDoer()
	doer.byURL["https://vast.example.com/tiered"] = `<?xml version="1.0"?>
<VAST version="4.0">
  <Ad id="ad1"><Tier>2</Tier>
    <InLine>
      <Creatives><Creative><Linear><MediaFiles>
        <MediaFile type="application/vnd.apple.mpegurl" bitrate="1000"><![CDATA[https://ads.example.com/a.m3u8]]></MediaFile>
      </MediaFiles></Linear></Creative></Creatives>
    </InLine>
  </Ad>
</VAST>`
	r := NewVASTResolver(doer, NewVASTCache(0))

	_, diag := r.Resolve(context.Background(), "https://vast.example.com/tiered", 1, false)
	if diag.OK() {
		t.Fatal("expected tier mismatch to yield no eligible Ad")
	}
}

func TestVASTCacheCollapsesConcurrentFetches(t *testing.T) {
	doer := newFakeDoer()
	doer.byURL["https://vast.example.com/tag"] = inlineVAST
	cache := NewVASTCache(5 * time.Minute)
	r := NewVASTResolver(doer, cache)

	for i := 0; i < 3; i++ {
		if _, diag := r.Resolve(context.Background(), "https://vast.example.com/tag", 0, false); !diag.OK() {
			t.Fatalf("unexpected errors: %v", diag.Errors)
		}
	}
	if doer.calls["https://vast.example.com/tag"] != 1 {
		t.Errorf("expected exactly 1 HTTP call due to caching, got %d", doer.calls["https://vast.example.com/tag"])
	}
}
