// Package monitor exposes a running trace over HTTP: a live tail of the
// decoded output and prometheus counters for the sample stream.
package monitor

import (
	"bytes"
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// subscriberBuffer is how many lines a slow subscriber may fall behind
// before lines are dropped for it.
const subscriberBuffer = 64

// Hub fans decoded output out to tail subscribers. It is an io.Writer that
// publishes one event per complete line and never blocks the writer.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	partial     []byte
	dropped     uint64
	closed      bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan string)}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe returns a channel receiving every line written after the call.
func (h *Hub) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Subscribers is the number of attached subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Dropped is the number of line deliveries skipped because a subscriber was
// full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Write buffers p and publishes each completed line without its newline.
func (h *Hub) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.partial = append(h.partial, p...)
	for {
		i := bytes.IndexByte(h.partial, '\n')
		if i < 0 {
			break
		}
		line := string(h.partial[:i])
		h.partial = h.partial[i+1:]
		h.publish(line)
	}
	if len(h.partial) == 0 {
		h.partial = nil
	}
	return len(p), nil
}

func (h *Hub) publish(line string) {
	for _, ch := range h.subscribers {
		select {
		case ch <- line:
		default:
			// if the channel is full skip so as not to block the decoder
			h.dropped++
		}
	}
}

// Close flushes any unterminated output and closes every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.partial) > 0 {
		h.publish(string(h.partial))
		h.partial = nil
	}
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	h.closed = true
	return nil
}
