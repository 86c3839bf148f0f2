// Package memqueue is an in-memory Queue fixture for tests. It is not a
// production collaborator implementation.
package memqueue

import (
	"context"
	"sync"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// Queue implements collab.Queue over in-process topics held as slices in a map.
type Queue struct {
	mu        sync.Mutex
	topics    map[string][]collab.QueueMessage
	deadLetters map[string][]collab.QueueMessage
	nextID    int
}

// New constructs an empty Queue.
func New() *Queue {
	return &Queue{
		topics:      make(map[string][]collab.QueueMessage),
		deadLetters: make(map[string][]collab.QueueMessage),
	}
}

func (q *Queue) Enqueue(_ context.Context, topic string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	msg := collab.QueueMessage{ID: idFor(q.nextID), Topic: topic, Body: append([]byte(nil), body...)}
	q.topics[topic] = append(q.topics[topic], msg)
	return nil
}

func (q *Queue) Consume(_ context.Context, topic string, batchSize int) ([]collab.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.topics[topic]
	if len(pending) > batchSize {
		pending, q.topics[topic] = pending[:batchSize], pending[batchSize:]
	} else {
		q.topics[topic] = nil
	}
	return pending, nil
}

func (q *Queue) Ack(_ context.Context, _ collab.QueueMessage) error {
	return nil
}

func (q *Queue) Nack(_ context.Context, msg collab.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg.Attempt++
	q.topics[msg.Topic] = append(q.topics[msg.Topic], msg)
	return nil
}

func (q *Queue) DeadLetter(_ context.Context, topic string, msg collab.QueueMessage, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	_ = reason
	q.deadLetters[topic] = append(q.deadLetters[topic], msg)
	return nil
}

// DeadLetters returns the messages published to a topic's dead-letter queue,
// for test assertions.
func (q *Queue) DeadLetters(topic string) []collab.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]collab.QueueMessage(nil), q.deadLetters[topic]...)
}

func idFor(n int) string {
	const hexDigits = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = hexDigits[n%16]
		n /= 16
	}
	return string(buf[i:])
}

var _ collab.Queue = (*Queue)(nil)
