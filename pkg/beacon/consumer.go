package beacon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

const dedupTTL = 10 * time.Minute

// Consumer pulls beacon messages in batches, deduplicates, and fires every
// tracker URL in each message concurrently.
type Consumer struct {
	Queue  collab.Queue
	Dedup  collab.DurableKV
	Client *http.Client
	Log    *slog.Logger

	RetryDelays []time.Duration // defaults to {30s, 90s} per spec's "2 retries, 30-90s delays"
}

// NewConsumer constructs a Consumer with spec-default retry delays and a
// short HTTP timeout, grounded on the teacher's preference for explicit
// http.Client timeouts over the zero-value (infinite) default.
func NewConsumer(q collab.Queue, dedup collab.DurableKV, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		Queue: q,
		Dedup: dedup,
		Client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("beacon: stopped after 3 redirects")
				}
				return nil
			},
		},
		Log:         log,
		RetryDelays: []time.Duration{30 * time.Second, 90 * time.Second},
	}
}

// Run pulls one batch of up to batchSize messages and dispatches them. No
// cross-message ordering is guaranteed; each message's tracker URLs fire
// concurrently within that message via golang.org/x/sync/errgroup.
func (c *Consumer) Run(ctx context.Context, batchSize int) error {
	msgs, err := c.Queue.Consume(ctx, topic, batchSize)
	if err != nil {
		return fmt.Errorf("beacon: consume batch: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, qm := range msgs {
		qm := qm
		g.Go(func() error {
			c.dispatchOne(gctx, qm)
			return nil
		})
	}
	return g.Wait()
}

func (c *Consumer) dispatchOne(ctx context.Context, qm collab.QueueMessage) {
	msg, err := decodeMessage(qm.Body)
	if err != nil {
		c.Log.Error("beacon: malformed message, dropping", "error", err)
		_ = c.Queue.Ack(ctx, qm)
		return
	}

	if c.Dedup != nil {
		seen, _ := c.Dedup.Get(ctx, msg.DedupKey)
		if seen != nil {
			c.Log.Debug("beacon: duplicate suppressed", "adId", msg.AdID, "event", msg.Event, "dedupKey", msg.DedupKey)
			_ = c.Queue.Ack(ctx, qm)
			return
		}
		_ = c.Dedup.Put(ctx, msg.DedupKey, []byte("1"), dedupTTL)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, url := range msg.TrackerURLs {
		url := url
		g.Go(func() error {
			c.fireWithRetry(gctx, msg, url)
			return nil
		})
	}
	_ = g.Wait()
	_ = c.Queue.Ack(ctx, qm)
}

func (c *Consumer) fireWithRetry(ctx context.Context, msg BeaconMessage, url string) {
	attempt := 0
	for {
		attempt++
		status, err := c.fireOnce(ctx, url)
		switch {
		case err == nil && status >= 200 && status < 300:
			c.Log.Info("beacon: tracker fired", "adId", msg.AdID, "event", msg.Event, "url", url, "status", status, "attempts", attempt)
			return
		case err == nil && status >= 400 && status < 500:
			c.Log.Warn("beacon: tracker terminal failure", "adId", msg.AdID, "event", msg.Event, "url", url, "status", status, "attempts", attempt)
			return
		default:
			if attempt > len(c.RetryDelays) {
				c.Log.Error("beacon: tracker exhausted retries, publishing to DLQ", "adId", msg.AdID, "event", msg.Event, "url", url, "status", status, "attempts", attempt)
				_ = c.Queue.DeadLetter(ctx, topic, collab.QueueMessage{Body: []byte(url)}, "retries exhausted")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.RetryDelays[attempt-1]):
			}
		}
	}
}

func (c *Consumer) fireOnce(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
