package attendance

import (
	"sync"
	"sync/atomic"

	"github.com/thenithin342/Attendance-ios/internal/models"
)

const subscriberBuffer = 16

// Subscription receives records published to a Hub. C is closed when the
// subscription ends.
type Subscription struct {
	C        <-chan models.AttendanceRecord
	ch       chan models.AttendanceRecord
	windowID string
	dropped  atomic.Int64
}

// Dropped returns how many records the subscriber missed because its
// buffer was full.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Hub fans newly stored attendance records out to live subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// record.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber. An empty windowID receives every record.
func (h *Hub) Subscribe(windowID string) *Subscription {
	ch := make(chan models.AttendanceRecord, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, windowID: windowID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

func (h *Hub) Publish(rec models.AttendanceRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.windowID != "" && sub.windowID != rec.AttendanceWindowID {
			continue
		}
		select {
		case sub.ch <- rec:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription; later subscriptions are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
