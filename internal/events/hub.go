package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Publisher is what the engine needs from the hub.
type Publisher interface {
	Publish(evt string)
}

type subscriber struct {
	types map[string]bool // empty means every type
}

func (s subscriber) wants(typ string) bool {
	return len(s.types) == 0 || s.types[typ]
}

// Hub fans encoded events out to SSE subscribers. A subscriber whose buffer
// is full misses the event; the publisher never blocks.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]subscriber
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]subscriber)}
}

// Subscribe registers a buffered channel. With types given, only events of
// those types are delivered.
func (h *Hub) Subscribe(types ...string) chan string {
	sub := subscriber{}
	if len(types) > 0 {
		sub.types = make(map[string]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	ch := make(chan string, 16)
	h.mu.Lock()
	h.clients[ch] = sub
	h.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. Calling it twice is harmless.
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *Hub) Publish(evt string) {
	if h == nil {
		return
	}
	typ := typeOf(evt)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, sub := range h.clients {
		if !sub.wants(typ) {
			continue
		}
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func typeOf(evt string) string {
	var head struct {
		Type string `json:"type"`
	}
	if json.Unmarshal([]byte(evt), &head) != nil {
		return ""
	}
	return head.Type
}
