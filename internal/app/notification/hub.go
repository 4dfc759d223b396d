// Package notification provides the event hub for broadcasting playback events.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/playback"
)

// DefaultBufferSize is the channel capacity used when Subscribe is given a non-positive size.
const DefaultBufferSize = 64

var _ playback.Publisher = (*Hub)(nil)

// subscription represents a subscriber's subscription.
type subscription struct {
	id      string
	ch      chan playback.Event
	dropped atomic.Uint64
}

// Hub fans playback events out to subscribers.
// Publish never blocks: an event is dropped for a subscriber whose buffer is full.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	closed        bool
	onDrop        func(subscriptionID string, e playback.Event)
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns its ID and event channel.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe(bufferSize int) (string, <-chan playback.Event) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan playback.Event, bufferSize)
	if h.closed {
		close(ch)
		return "", ch
	}

	id := uuid.New().String()
	h.subscriptions[id] = &subscription{
		id: id,
		ch: ch,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s buffer=%d", id, bufferSize)
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(h.subscriptions, subscriptionID)
	close(sub.ch)
	zlog.Debug().Msgf("notification: unsubscribed: id=%s dropped=%d", subscriptionID, sub.dropped.Load())
}

// OnDrop registers fn to be called for every event dropped for a full subscriber.
// fn runs on the publishing goroutine and must not block or call back into the hub.
func (h *Hub) OnDrop(fn func(subscriptionID string, e playback.Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (h *Hub) NextSequenceNo() uint64 {
	h.sequenceNoMu.Lock()
	defer h.sequenceNoMu.Unlock()
	h.sequenceNo++
	return h.sequenceNo
}

// Publish stamps e with a sequence number and delivers it to every subscriber.
func (h *Hub) Publish(e playback.Event) {
	e.Seq = h.NextSequenceNo()

	// Sends happen under the read lock so that no channel is closed mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subscriptions {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
			zlog.Debug().Msgf("notification: subscriber full, event dropped: id=%s type=%s seq=%d",
				sub.id, e.Type, e.Seq)
			if h.onDrop != nil {
				h.onDrop(sub.id, e)
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscriptions {
		close(sub.ch)
		delete(h.subscriptions, id)
	}
}
