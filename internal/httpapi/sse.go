package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber queue depth before events are
// dropped for that subscriber.
const subscriberBuffer = 256

// keepaliveInterval is how often an idle stream sends a comment line.
const keepaliveInterval = 30 * time.Second

// SSEHub fans orchestrator events out to any number of event-stream
// subscribers. Delivery is at-most-once: a subscriber that cannot keep up
// has events dropped rather than exerting backpressure on publishers.
type SSEHub struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

// NewSSEHub creates an empty hub.
func NewSSEHub() *SSEHub {
	return &SSEHub{subs: make(map[chan []byte]struct{})}
}

// Subscribe registers and returns a new subscriber queue.
func (h *SSEHub) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its queue. Unsubscribing twice
// is a no-op.
func (h *SSEHub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// PublishJSON marshals v once and offers it to every subscriber. A full
// subscriber queue drops the event for that subscriber only.
func (h *SSEHub) PublishJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Handler streams hub events to one HTTP client in text/event-stream
// framing, with an initial connected message and periodic keepalives.
func (h *SSEHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := h.Subscribe()
		defer h.Unsubscribe(ch)

		fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
		flusher.Flush()

		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case payload, open := <-ch:
				if !open {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
