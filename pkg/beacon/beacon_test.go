package beacon

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/collab/memkv"
	"github.com/liveadstitch/ssai-core/pkg/collab/memqueue"
)

type fakeTransport struct {
	mu      sync.Mutex
	calls   map[string]int
	status  map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(map[string]int), status: make(map[string]int)}
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	f.mu.Lock()
	f.calls[url]++
	status := f.status[url]
	f.mu.Unlock()
	if status == 0 {
		status = 200
	}
	return &http.Response{StatusCode: status, Body: http.NoBody, Header: make(http.Header)}, nil
}

func (f *fakeTransport) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func TestProducerEnqueueAndConsumerFiresTrackers(t *testing.T) {
	q := memqueue.New()
	dedup := memkv.New()
	transport := newFakeTransport()

	p := NewProducer(q)
	if err := p.Enqueue(context.Background(), BeaconMessage{
		Event:       EventImpression,
		AdID:        "ad1",
		Channel:     "ch1",
		TrackerURLs: []string{"https://track.example.com/imp1", "https://track.example.com/imp2"},
		Metadata:    Metadata{SessionHint: "sess1"},
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	c := NewConsumer(q, dedup, nil)
	c.Client = &http.Client{Transport: transport}

	if err := c.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.callCount("https://track.example.com/imp1") != 1 {
		t.Error("expected imp1 tracker fired exactly once")
	}
	if transport.callCount("https://track.example.com/imp2") != 1 {
		t.Error("expected imp2 tracker fired exactly once")
	}
}

func TestConsumerDeduplicatesByDedupKey(t *testing.T) {
	q := memqueue.New()
	dedup := memkv.New()
	transport := newFakeTransport()

	p := NewProducer(q)
	msg := BeaconMessage{Event: EventImpression, AdID: "ad1", TrackerURLs: []string{"https://track.example.com/dup"}, DedupKey: "fixed-key"}
	_ = p.Enqueue(context.Background(), msg)
	_ = p.Enqueue(context.Background(), msg)

	c := NewConsumer(q, dedup, nil)
	c.Client = &http.Client{Transport: transport}
	if err := c.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.callCount("https://track.example.com/dup") != 1 {
		t.Errorf("expected exactly 1 fire due to dedup, got %d", transport.callCount("https://track.example.com/dup"))
	}
}

func Test4xxIsTerminalNoRetry(t *testing.T) {
	q := memqueue.New()
	transport := newFakeTransport()
	transport.status["https://track.example.com/gone"] = 404

	p := NewProducer(q)
	_ = p.Enqueue(context.Background(), BeaconMessage{AdID: "ad1", TrackerURLs: []string{"https://track.example.com/gone"}})

	c := NewConsumer(q, nil, nil)
	c.Client = &http.Client{Transport: transport}
	c.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	if err := c.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.callCount("https://track.example.com/gone") != 1 {
		t.Errorf("expected exactly 1 attempt for a 4xx, got %d", transport.callCount("https://track.example.com/gone"))
	}
}

func Test5xxRetriesThenDeadLetters(t *testing.T) {
	q := memqueue.New()
	transport := newFakeTransport()
	transport.status["https://track.example.com/flaky"] = 503

	p := NewProducer(q)
	_ = p.Enqueue(context.Background(), BeaconMessage{AdID: "ad1", TrackerURLs: []string{"https://track.example.com/flaky"}})

	c := NewConsumer(q, nil, nil)
	c.Client = &http.Client{Transport: transport}
	c.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	if err := c.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.callCount("https://track.example.com/flaky") != 3 {
		t.Errorf("expected 1 initial attempt + 2 retries = 3, got %d", transport.callCount("https://track.example.com/flaky"))
	}
	if len(q.DeadLetters(topic)) != 1 {
		t.Errorf("expected exactly 1 dead-lettered tracker, got %d", len(q.DeadLetters(topic)))
	}
}
