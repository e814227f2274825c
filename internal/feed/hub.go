// Package feed fans store changes out to live subscribers such as
// server-sent-event clients.
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
	"github.com/fairyhunter13/gng-store/internal/report"
	"github.com/fairyhunter13/gng-store/internal/store"
)

// Event is one change notification.
type Event struct {
	Seq     uint64         `json:"seq"`
	Op      string         `json:"op"`
	At      string         `json:"at"`
	Summary report.Summary `json:"summary"`
}

// Hub delivers events to every subscriber without ever blocking the
// publisher: a subscriber whose buffer is full misses the event.
type Hub struct {
	buffer int
	seq    Sequencer
	now    func() time.Time

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a Hub with the given per-subscriber buffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{buffer: buffer, now: time.Now, subs: make(map[chan Event]struct{})}
}

// OnChange is a store.Listener that publishes a summary of the change.
func (h *Hub) OnChange(c store.Change) {
	h.Publish(string(c.Op), c.Snapshot)
}

// Publish stamps and broadcasts an event for snap.
func (h *Hub) Publish(op string, snap model.Snapshot) Event {
	ev := Event{
		Seq:     h.seq.Next(),
		Op:      op,
		At:      h.now().UTC().Format(model.DateLayout),
		Summary: report.Summarize(snap),
	}
	h.published.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			obs.L().Debug("feed_event_dropped", "seq", ev.Seq, "op", op)
		}
	}
	return ev
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
// After Close, Subscribe returns an already closed channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Metrics returns counters for observability.
func (h *Hub) Metrics() (published, dropped uint64, subscribers int) {
	h.mu.Lock()
	subscribers = len(h.subs)
	h.mu.Unlock()
	return h.published.Load(), h.dropped.Load(), subscribers
}

// LastSeq returns the sequence number of the latest event.
func (h *Hub) LastSeq() uint64 { return h.seq.Last() }
