// Package stream fans progress messages out to connected clients.
package stream

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Event names pushed to clients.
const (
	EventStatus           = "status"
	EventMarathonComplete = "marathon_complete"
	EventVerifyComplete   = "verify_complete"
)

// Message is the envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Encode renders the message as JSON.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Status is the payload of EventStatus messages. Type is one of info,
// success, warning or error.
type Status struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// StatusMessage builds an EventStatus message.
func StatusMessage(msg, typ string) Message {
	return Message{Event: EventStatus, Data: Status{Message: msg, Type: typ}}
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 256

// Hub broadcasts messages to subscribers. Publishing never blocks: a
// subscriber whose queue is full misses the message.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewHub creates a hub with the given per-subscriber buffer. A buffer of
// zero or less uses DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives messages from a Hub.
type Subscription struct {
	ch      chan Message
	dropped atomic.Int64
	once    sync.Once
}

// C returns the channel messages are delivered on. It is closed when the
// subscription ends.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Dropped is the number of messages missed because the queue was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Message, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		s.close()
	}
}

// Publish delivers m to every subscriber.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- m:
		default:
			s.dropped.Add(1)
		}
	}
}

// Len is the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		s.close()
	}
}
