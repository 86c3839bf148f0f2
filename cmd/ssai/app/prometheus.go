package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var defaultBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000}

const (
	playlistReqsName    = "playlist_requests_total"
	playlistLatencyName = "playlist_request_duration_milliseconds"
	segmentReqsName     = "segment_requests_total"
	segmentLatencyName  = "segment_request_duration_milliseconds"
	cueReqsName         = "cue_requests_total"
	service             = "ssai-core"
)

// prometheusMiddleware exposes per-route-class counters and latency
// histograms, adapted from the teacher's extension-keyed prometheus.go but
// keyed by the SSAI edge server's own URL shape (.m3u8 vs segment vs cue).
type prometheusMiddleware struct {
	playlistReqs    *prometheus.CounterVec
	playlistLatency *prometheus.HistogramVec
	segmentReqs     *prometheus.CounterVec
	segmentLatency  *prometheus.HistogramVec
	cueReqs         *prometheus.CounterVec
}

var prometheusMW prometheusMiddleware

func init() {
	prometheusMW.playlistReqs = newCounter(playlistReqsName, "Number of playlist requests processed, partitioned by status code.")
	prometheusMW.playlistLatency = newHistogram(playlistLatencyName, "Playlist response latency.")
	prometheusMW.segmentReqs = newCounter(segmentReqsName, "Number of segment requests processed, partitioned by status code.")
	prometheusMW.segmentLatency = newHistogram(segmentLatencyName, "Segment response latency.")
	prometheusMW.cueReqs = newCounter(cueReqsName, "Number of manual cue requests processed, partitioned by status code.")
}

// NewPrometheusMiddleware returns a new prometheus middleware handler.
func NewPrometheusMiddleware() func(next http.Handler) http.Handler {
	return prometheusMW.handler
}

func (mw prometheusMiddleware) handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := strconv.Itoa(ww.Status())
		latencyMS := float64(time.Since(start).Nanoseconds()) * 1e-6

		switch {
		case strings.HasSuffix(path, ".m3u8"):
			mw.playlistReqs.WithLabelValues(status).Inc()
			mw.playlistLatency.WithLabelValues(status).Observe(latencyMS)
		case strings.HasSuffix(path, "/cue"):
			mw.cueReqs.WithLabelValues(status).Inc()
		case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".m4s"), strings.HasSuffix(path, ".aac"):
			mw.segmentReqs.WithLabelValues(status).Inc()
			mw.segmentLatency.WithLabelValues(status).Observe(latencyMS)
		}
	}
	return http.HandlerFunc(fn)
}

func newCounter(name, help string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: name, Help: help, ConstLabels: prometheus.Labels{"service": service}},
		[]string{"code"},
	)
	prometheus.MustRegister(cv)
	return cv
}

func newHistogram(name, help string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: name, Help: help, ConstLabels: prometheus.Labels{"service": service}, Buckets: defaultBuckets},
		[]string{"code"},
	)
	prometheus.MustRegister(h)
	return h
}

// componentCounters tracks operation outcomes per component. The components
// reported are "coordinator" (playlist handler), "segment_proxy" (segment
// pass-through) and "http_edge" (HTTP error responses).
var componentCounters = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name:        "component_operations_total",
		Help:        "Outcomes of core SSAI component operations, partitioned by component and outcome.",
		ConstLabels: prometheus.Labels{"service": service},
	},
	[]string{"component", "outcome"},
)

func init() {
	prometheus.MustRegister(componentCounters)
}

func observeComponent(component, outcome string) {
	componentCounters.WithLabelValues(component, outcome).Inc()
}
