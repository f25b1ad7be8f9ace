package roleplay

import (
	"sync"
)

// Event is what a Hub delivers to subscribers: exactly one of Snapshot or
// Notice is set.
type Event struct {
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Notice   *Notice   `json:"notice,omitempty"`
}

// Name returns the event name used on the wire ("snapshot" or "notice").
func (e Event) Name() string {
	if e.Notice != nil {
		return "notice"
	}
	return "snapshot"
}

// Hub is a Sink that fans events out to any number of subscribers. It never
// blocks the sequencer: a subscriber whose buffer is full loses its oldest
// pending event, and the latest snapshot is replayed on subscribe.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	last   *Snapshot
	closed bool
	buffer int
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Render implements Sink.
func (h *Hub) Render(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = &s
	h.broadcastLocked(Event{Snapshot: &s})
}

// Notify implements Sink. Notices are delivered best effort as well.
func (h *Hub) Notify(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.broadcastLocked(Event{Notice: &n})
}

func (h *Hub) broadcastLocked(evt Event) {
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Full: drop the oldest pending event so the newest state wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// Subscribe returns a channel of events and a cancel func. The channel is
// closed when cancel is called or the hub is closed.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.last != nil {
		ch <- Event{Snapshot: h.last}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Last returns the most recent snapshot, if any.
func (h *Hub) Last() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Snapshot{}, false
	}
	return *h.last, true
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
