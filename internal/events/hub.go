// Package events fans out table-change notifications to connected
// dashboards, replacing the managed backend's realtime channels.
package events

import (
	"log/slog"
	"sync"
)

// Event tells subscribers that rows were inserted into a table so they can
// refetch. Domain narrows the refetch when the table is domain-scoped.
type Event struct {
	Table  string `json:"table"`
	Domain string `json:"domain,omitempty"`
}

// Hub is an in-process publish/subscribe fan-out. Publishing never blocks:
// a subscriber whose buffer is full misses the event, which is acceptable
// because events only trigger refetches.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]chan Event
	nextID int64
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]chan Event)}
}

// Publish notifies all subscribers of a change to table.
func (h *Hub) Publish(table, dom string) {
	event := Event{Table: table, Domain: dom}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			slog.Debug("dropping change event for slow subscriber", "subscriber", id, "table", table)
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called when the subscriber goes away; the channel is closed by cancel or
// by Close.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Close shuts down the hub and all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
