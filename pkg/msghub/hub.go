// Package msghub relays metadata of newly ingested emails to its listeners.
package msghub

import (
	"container/ring"
	"context"
	"time"
)

// Length of msghub operation queue.
const opChanLen = 100

// Message is the metadata broadcast for each ingested email.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// Listener receives the contents of the history buffer, followed by new
// messages.
type Listener interface {
	Receive(msg Message) error
}

// Hub relays messages on to its listeners.
type Hub struct {
	// history buffer, points next Message to write. Proceeding non-nil
	// entry is oldest Message.
	history   *ring.Ring
	listeners map[Listener]struct{}
	opChan    chan func(h *Hub)
}

// New constructs a Hub caching historyLen messages for playback to future
// listeners. Start must be called before use.
func New(historyLen int) *Hub {
	return &Hub{
		history:   ring.New(historyLen),
		listeners: make(map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
	}
}

// Start runs the Hub processing loop until the context is canceled.
func (hub *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(hub.opChan)
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// Dispatch queues a message for broadcast by the hub. The message is placed
// into the history buffer and relayed to all registered listeners.
func (hub *Hub) Dispatch(msg Message) {
	hub.opChan <- func(h *Hub) {
		if h.history != nil {
			h.history.Value = msg
			h.history = h.history.Next()
		}

		// Deliver to all listeners, dropping those that error.
		for l := range h.listeners {
			if err := l.Receive(msg); err != nil {
				delete(h.listeners, l)
			}
		}
	}
}

// AddListener registers a listener to receive broadcast messages, replaying
// the history buffer to it first.
func (hub *Hub) AddListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		if h.history != nil {
			h.history.Do(func(v interface{}) {
				if v != nil {
					_ = l.Receive(v.(Message))
				}
			})
		}
		h.listeners[l] = struct{}{}
	}
}

// RemoveListener deletes a listener registration, it will cease to receive
// messages.
func (hub *Hub) RemoveListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		delete(h.listeners, l)
	}
}

// Sync blocks until the hub has processed its queue up to this point,
// useful for unit tests.
func (hub *Hub) Sync() {
	done := make(chan struct{})
	hub.opChan <- func(h *Hub) {
		close(done)
	}
	<-done
}
