package chatclient

import (
	"sync"
)

// MessageStore holds the ordered history of the one open conversation.
// History loads replace the list; live events append in arrival order, even
// when their timestamps disagree with history order (the newest observed
// message is accepted as newest, with no resequencing).
//
// Loads are epoch-guarded: opening a different conversation bumps the epoch
// and any fetch still in flight for the old one is discarded when it lands,
// so a slow response for conversation A can never overwrite B's history.
type MessageStore struct {
	mu          sync.Mutex
	sessionUser uint
	counterpart uint // 0 when no conversation is open
	epoch       uint64
	messages    []Message
	seen        map[string]struct{}
}

func NewMessageStore(sessionUser uint) *MessageStore {
	return &MessageStore{
		sessionUser: sessionUser,
		seen:        make(map[string]struct{}),
	}
}

// Open switches the store to the conversation with counterpart, clearing
// the previous history, and returns the load epoch to pass to
// CompleteLoad.
func (s *MessageStore) Open(counterpart uint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counterpart = counterpart
	s.epoch++
	s.messages = nil
	s.seen = make(map[string]struct{})
	return s.epoch
}

// Close discards the open conversation. History stays server-side and is
// re-fetchable.
func (s *MessageStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counterpart = 0
	s.epoch++
	s.messages = nil
	s.seen = make(map[string]struct{})
}

// Counterpart returns the open conversation's peer, 0 when closed.
func (s *MessageStore) Counterpart() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// CompleteLoad installs fetched history if the store is still on the epoch
// the load started with. It reports whether the history was applied; false
// means the response was stale and discarded.
//
// Live messages applied between Open and CompleteLoad are superseded by the
// history: the Delivery coordinator persists before it announces, so
// anything pushed live in that window is already part of the fetched
// history.
func (s *MessageStore) CompleteLoad(epoch uint64, history []Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}

	s.messages = make([]Message, 0, len(history))
	s.seen = make(map[string]struct{}, len(history))
	for _, msg := range history {
		key := msg.identityKey()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.messages = append(s.messages, msg)
	}
	return true
}

// Apply appends a message if it belongs to the open conversation and has
// not been seen before. It reports whether the store absorbed the message;
// false with an open mismatching conversation means the caller must route
// it to the aggregator instead.
func (s *MessageStore) Apply(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counterpart == 0 || !msg.MatchesPair(s.sessionUser, s.counterpart) {
		return false
	}

	key := msg.identityKey()
	if _, dup := s.seen[key]; dup {
		// Already present (optimistic copy vs. relayed copy): absorbed,
		// not re-appended.
		return true
	}
	s.seen[key] = struct{}{}
	s.messages = append(s.messages, msg)
	return true
}

// Messages returns a copy of the current ordered history.
func (s *MessageStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages currently held.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
