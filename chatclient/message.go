// Package chatclient implements the dashboard's chat core: a persistent
// live connection with presence, a per-conversation message store, unread
// and last-message aggregation across all peers, read-receipt
// synchronization and optimistic send with de-duplication.
//
// The package talks to the chat service's REST endpoints for anything
// durable and uses the WebSocket channel only for low-latency push; every
// state change pushed live is recoverable from a later fetch.
package chatclient

import (
	"fmt"
	"time"
)

// Message is the wire shape shared with the chat service.
type Message struct {
	ID        uint      `json:"id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	Sender    uint      `json:"sender"`
	Receiver  uint      `json:"receiver"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"is_read,omitempty"`
}

// LastMessage is one per-peer preview entry.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Involves reports whether userID is a participant of the message.
func (m Message) Involves(userID uint) bool {
	return m.Sender == userID || m.Receiver == userID
}

// Counterpart returns the other participant relative to userID, or 0 when
// userID is not a participant.
func (m Message) Counterpart(userID uint) uint {
	switch userID {
	case m.Sender:
		return m.Receiver
	case m.Receiver:
		return m.Sender
	default:
		return 0
	}
}

// MatchesPair reports whether the message belongs to the conversation
// between a and b, in either direction.
func (m Message) MatchesPair(a, b uint) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// identityKey is the de-duplication key for a logical message. The client
// UUID travels with both the optimistic copy and every server copy, so it
// is the preferred identity; the server id and the natural composite are
// fallbacks for messages that predate client ids.
func (m Message) identityKey() string {
	if m.ClientID != "" {
		return "cid:" + m.ClientID
	}
	if m.ID != 0 {
		return fmt.Sprintf("id:%d", m.ID)
	}
	return fmt.Sprintf("nat:%d:%d:%d:%s", m.Sender, m.Receiver, m.Timestamp.UnixNano(), m.Content)
}
