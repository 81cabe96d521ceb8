package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryHub is an in-process Hub. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type MemoryHub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Event]struct{}
	closed  bool
	dropped atomic.Int64
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *MemoryHub) Publish(ctx context.Context, channel string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}

	for ch := range h.subs[channel] {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrClosed
	}

	ch := make(chan Event, subscriberBuffer)
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[chan Event]struct{})
	}
	h.subs[channel][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.unsubscribe(channel, ch) })
	}
	return ch, cancel, nil
}

func (h *MemoryHub) unsubscribe(channel string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channel]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.subs, channel)
	}
	close(ch)
}

// Subscribers returns the number of open subscriptions on channel.
func (h *MemoryHub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Dropped returns how many events were discarded for full subscribers.
func (h *MemoryHub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every subscription.
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for channel, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, channel)
	}
	return nil
}
