package decision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/liveadstitch/ssai-core/pkg/hlsrewrite"
)

// HTTPDoer is the minimal HTTP client surface VASTResolver needs, so tests
// can substitute a fake transport without reaching for an ecosystem HTTP
// mocking library.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxWrapperDepth = 5

// VASTResolver fetches and parses VAST 3.0/4.x XML, resolving Wrapper ads up
// to maxWrapperDepth levels, merging trackers across the chain, and
// filtering by Tier.
type VASTResolver struct {
	client HTTPDoer
	cache  *VASTCache
}

// NewVASTResolver constructs a resolver over client, backed by cache for
// content-addressed VAST XML reuse.
func NewVASTResolver(client HTTPDoer, cache *VASTCache) *VASTResolver {
	return &VASTResolver{client: client, cache: cache}
}

// Resolve fetches url, follows Wrapper chains, and builds an AdPod sorted
// by ascending bitrate from the first eligible Inline ad's MediaFiles.
func (r *VASTResolver) Resolve(ctx context.Context, url string, channelTier int, audioOnly bool) (hlsrewrite.AdPod, Diagnostics) {
	var diag Diagnostics
	visited := make(map[string]bool)

	trackers := make(map[string][]string)
	mediaFiles, finalDiag := r.resolveChain(ctx, url, channelTier, visited, trackers, 0)
	diag.merge(finalDiag)
	if !diag.OK() {
		return hlsrewrite.AdPod{}, diag
	}

	items := buildPodItems(mediaFiles, audioOnly, trackers)
	if len(items) == 0 {
		diag.addWarning("decision: VAST resolved but no eligible MediaFiles for audioOnly=%v", audioOnly)
		return hlsrewrite.AdPod{}, diag
	}

	sort.Slice(items, func(i, j int) bool { return items[i].BitrateBps < items[j].BitrateBps })
	return hlsrewrite.AdPod{PodID: "vast:" + url, Items: items}, diag
}

type mediaFile struct {
	typ        string
	bitrateBps int
	uri        string
}

func (r *VASTResolver) resolveChain(ctx context.Context, url string, channelTier int, visited map[string]bool, trackers map[string][]string, depth int) ([]mediaFile, Diagnostics) {
	var diag Diagnostics
	if depth >= maxWrapperDepth {
		diag.addError("vast: wrapper depth exceeded %d at %s", maxWrapperDepth, url)
		return nil, diag
	}
	if visited[url] {
		diag.addError("vast: wrapper cycle detected at %s", url)
		return nil, diag
	}
	visited[url] = true

	body, err := r.fetch(ctx, url)
	if err != nil {
		diag.addError("vast: fetch %s: %v", url, err)
		return nil, diag
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		diag.addError("vast: parse %s: %v", url, err)
		return nil, diag
	}

	root := doc.SelectElement("VAST")
	if root == nil {
		diag.addError("vast: no <VAST> root element at %s", url)
		return nil, diag
	}

	for _, ad := range root.SelectElements("Ad") {
		if tier := ad.SelectElement("Tier"); tier != nil {
			if tv, err := strconv.Atoi(strings.TrimSpace(tier.Text())); err == nil {
				if channelTier != 0 && tv != channelTier {
					continue
				}
			}
		}

		collectTrackers(ad, trackers)

		if inline := ad.SelectElement("InLine"); inline != nil {
			return extractMediaFiles(inline), diag
		}

		if wrapper := ad.SelectElement("Wrapper"); wrapper != nil {
			uriEl := wrapper.SelectElement("VASTAdTagURI")
			if uriEl == nil {
				diag.addError("vast: wrapper missing VASTAdTagURI at %s", url)
				continue
			}
			nextURL := strings.TrimSpace(uriEl.Text())
			files, d := r.resolveChain(ctx, nextURL, channelTier, visited, trackers, depth+1)
			diag.merge(d)
			if diag.OK() && len(files) > 0 {
				return files, diag
			}
		}
	}

	diag.addError("vast: no eligible Ad found at %s", url)
	return nil, diag
}

func collectTrackers(ad *etree.Element, trackers map[string][]string) {
	for _, imp := range ad.FindElements(".//Impression") {
		trackers["imp"] = append(trackers["imp"], strings.TrimSpace(imp.Text()))
	}
	for _, track := range ad.FindElements(".//Tracking") {
		event := track.SelectAttrValue("event", "")
		if event == "" {
			continue
		}
		trackers[event] = append(trackers[event], strings.TrimSpace(track.Text()))
	}
	for _, click := range ad.FindElements(".//ClickThrough") {
		trackers["click"] = append(trackers["click"], strings.TrimSpace(click.Text()))
	}
	for _, errEl := range ad.FindElements(".//Error") {
		trackers["error"] = append(trackers["error"], strings.TrimSpace(errEl.Text()))
	}
}

func extractMediaFiles(inline *etree.Element) []mediaFile {
	var out []mediaFile
	for _, mf := range inline.FindElements(".//MediaFile") {
		bw, _ := strconv.Atoi(strings.TrimSpace(mf.SelectAttrValue("bitrate", "0")))
		out = append(out, mediaFile{
			typ:        strings.ToLower(mf.SelectAttrValue("type", "")),
			bitrateBps: bw * 1000, // VAST bitrate is kbps
			uri:        strings.TrimSpace(mf.Text()),
		})
	}
	return out
}

// preferredMIMEOrder implements spec §4.3's MediaFile MIME preference:
// application/vnd.apple.mpegurl first, then video/mp4.
var preferredMIMEOrder = []string{"application/vnd.apple.mpegurl", "video/mp4"}

// buildPodItems converts the chosen Ad's MediaFiles into AdPodItems, each
// carrying the full tracker set collected from that Ad and its Wrapper
// chain — VAST trackers are pod-level, not per-MediaFile, so every item in
// the pod shares the same map.
func buildPodItems(files []mediaFile, audioOnly bool, trackers map[string][]string) []hlsrewrite.AdPodItem {
	byMIME := make(map[string][]mediaFile)
	for _, f := range files {
		byMIME[f.typ] = append(byMIME[f.typ], f)
	}

	var chosen []mediaFile
	for _, mime := range preferredMIMEOrder {
		if fs, ok := byMIME[mime]; ok {
			chosen = fs
			break
		}
	}
	if chosen == nil {
		chosen = files
	}

	var items []hlsrewrite.AdPodItem
	for _, f := range chosen {
		items = append(items, hlsrewrite.AdPodItem{
			BitrateBps:  f.bitrateBps,
			PlaylistURI: f.uri,
			IsAudioOnly: audioOnly,
			Trackers:    trackers,
		})
	}
	return items
}

func (r *VASTResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	if r.cache != nil {
		if body, ok := r.cache.Get(url); ok {
			return body, nil
		}
	}

	body, err := r.cache.singleflightFetch(url, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Put(url, body)
	}
	return body, nil
}
