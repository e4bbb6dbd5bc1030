package relay

import (
	"sync"

	"github.com/coracle-social/kgroups/event"
)

// Subscription is one client's live REQ: a subscription id plus the
// (possibly multiple, OR'd) filters that define it.
type Subscription struct {
	ConnID  string
	SubID   string
	Filters []*Filter
	Deliver func(evt *event.Event) error
}

func (s *Subscription) matches(evt *event.Event) bool {
	for _, f := range s.Filters {
		if f.Matches(evt) {
			return true
		}
	}
	return false
}

// key identifies a subscription within a connection: a duplicate REQ on
// an active subId replaces the prior subscription atomically, scoped per
// connection.
type key struct {
	connID string
	subID  string
}

// Hub fans out accepted events to matching subscribers by pre-matching
// against in-memory filter predicates (O(subs*filters) per event) rather
// than re-querying a store per filter per event.
type Hub struct {
	mu   sync.RWMutex
	subs map[key]*Subscription
}

// NewHub returns an empty subscription registry.
func NewHub() *Hub {
	return &Hub{subs: make(map[key]*Subscription)}
}

// Subscribe registers or atomically replaces connID's subID subscription.
func (h *Hub) Subscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[key{sub.ConnID, sub.SubID}] = sub
}

// Unsubscribe removes connID's subID subscription.
func (h *Hub) Unsubscribe(connID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, key{connID, subID})
}

// Has reports whether connID already holds a subscription under subID; a
// REQ replacing an existing subId doesn't count against the
// per-connection subscription limit.
func (h *Hub) Has(connID, subID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[key{connID, subID}]
	return ok
}

// CountConn returns the number of live subscriptions connID holds.
func (h *Hub) CountConn(connID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for k := range h.subs {
		if k.connID == connID {
			n++
		}
	}
	return n
}

// UnsubscribeConn removes every subscription belonging to connID, for
// connection teardown.
func (h *Hub) UnsubscribeConn(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.subs {
		if k.connID == connID {
			delete(h.subs, k)
		}
	}
}

// Broadcast delivers evt once to every subscription whose filters match.
// A subscription's multiple OR'd filters collapse to a single delivery
// (matches returns one bool per subscription), which is the only
// duplicate suppressed within a dispatch; a connection holding several
// matching subscriptions receives the event on each of them.
func (h *Hub) Broadcast(evt *event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.matches(evt) {
			continue
		}
		_ = sub.Deliver(evt)
	}
}
