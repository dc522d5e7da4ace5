package chatclient

import (
	"sync"
)

// Aggregator tracks unread counts and last-message previews for every peer,
// independent of which conversation is open. Local increments are
// optimistic UI state; the server map installed via SetCounts is the truth
// and replaces them wholesale on every reconcile.
type Aggregator struct {
	mu       sync.Mutex
	counts   map[uint]int64
	previews map[uint]LastMessage
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		counts:   make(map[uint]int64),
		previews: make(map[uint]LastMessage),
	}
}

// Load installs the initial server-fetched state.
func (a *Aggregator) Load(counts map[uint]int64, previews map[uint]LastMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = make(map[uint]int64, len(counts))
	for k, v := range counts {
		a.counts[k] = v
	}
	a.previews = make(map[uint]LastMessage, len(previews))
	for k, v := range previews {
		a.previews[k] = v
	}
}

// SetCounts replaces the unread map with a server-fetched one.
func (a *Aggregator) SetCounts(counts map[uint]int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = make(map[uint]int64, len(counts))
	for k, v := range counts {
		a.counts[k] = v
	}
}

// OnIncoming applies one inbound message. activeCounterpart is the peer of
// the currently open conversation (0 when none) and is passed in at call
// time rather than captured at subscription time, so a long-lived handler
// can never act on a stale "current receiver".
//
// The unread count only moves for messages FROM a non-active peer TO the
// session user; the preview moves for every message involving the session
// user, newest timestamp wins.
func (a *Aggregator) OnIncoming(msg Message, sessionUser, activeCounterpart uint) {
	if !msg.Involves(sessionUser) {
		return
	}
	counterpart := msg.Counterpart(sessionUser)

	a.mu.Lock()
	defer a.mu.Unlock()

	if msg.Receiver == sessionUser && counterpart != activeCounterpart {
		a.counts[counterpart]++
	}

	if existing, ok := a.previews[counterpart]; !ok || !msg.Timestamp.Before(existing.Timestamp) {
		a.previews[counterpart] = LastMessage{
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
	}
}

// Zero clears the unread count for one peer (after a successful
// mark-as-read).
func (a *Aggregator) Zero(counterpart uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, counterpart)
}

// UnreadCount returns the count for one peer.
func (a *Aggregator) UnreadCount(counterpart uint) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[counterpart]
}

// UnreadCounts returns a snapshot of the unread map.
func (a *Aggregator) UnreadCounts() map[uint]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uint]int64, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// Preview returns the last-message preview for one peer.
func (a *Aggregator) Preview(counterpart uint) (LastMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lm, ok := a.previews[counterpart]
	return lm, ok
}

// Previews returns a snapshot of the preview map.
func (a *Aggregator) Previews() map[uint]LastMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uint]LastMessage, len(a.previews))
	for k, v := range a.previews {
		out[k] = v
	}
	return out
}
