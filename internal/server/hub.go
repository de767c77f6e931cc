package server

import (
	"sync"

	"github.com/irfansharif/markup/internal/library"
	"github.com/irfansharif/markup/internal/logging"
)

const subscriberBuffer = 16

// hub fans library events out to every connected event stream. Slow
// subscribers drop events rather than stall the watcher.
type hub struct {
	mu     sync.Mutex
	subs   map[chan library.Event]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan library.Event]struct{})}
}

func (h *hub) subscribe() (<-chan library.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan library.Event, subscriberBuffer)
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

func (h *hub) publish(ev library.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			logging.Logger().Warn("event subscriber lagging, dropping", "file", ev.Filename)
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
