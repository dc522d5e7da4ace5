package ws

import (
	"fmt"
	"log"
	"time"
)

// MessageSend is the live-channel copy of an already-persisted message. The
// REST endpoint is the only writer; this event exists purely for
// low-latency fan-out, so Process relays and never touches the database.
type MessageSend struct {
	ID         uint      `json:"id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	SenderID   uint      `json:"sender"`
	ReceiverID uint      `json:"receiver"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

func (msg *MessageSend) GetType() string {
	return "sendMessage"
}

// MessageReceive is the outbound relay of a MessageSend. It is delivered to
// both participants; the sender's client de-duplicates its optimistic copy.
type MessageReceive struct {
	ID         uint      `json:"id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	SenderID   uint      `json:"sender"`
	ReceiverID uint      `json:"receiver"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

func (msg *MessageReceive) GetType() string {
	return "receiveMessage"
}

// Process is a no-op: receiveMessage is outbound-only and never arrives
// from a client, so there is nothing to do server-side.
func (msg *MessageReceive) Process(ctx *MessageContext) error {
	return nil
}

func (msg *MessageSend) Process(ctx *MessageContext) error {
	if msg.SenderID != ctx.UserID {
		return fmt.Errorf("sendMessage sender %d does not match connection user %d", msg.SenderID, ctx.UserID)
	}
	if msg.ReceiverID == 0 || msg.Content == "" {
		return fmt.Errorf("sendMessage requires receiver and content")
	}

	relay := &MessageReceive{
		ID:         msg.ID,
		ClientID:   msg.ClientID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
	}
	data, err := Serialize(relay)
	if err != nil {
		return err
	}

	// An offline participant is not an error: they recover the message from
	// the next history fetch.
	if err := ctx.Hub.SendRaw(msg.ReceiverID, data); err != nil {
		log.Printf("Receiver %d not reachable over live channel: %v", msg.ReceiverID, err)
	}
	if err := ctx.Hub.SendRaw(msg.SenderID, data); err != nil {
		log.Printf("Sender %d echo failed: %v", msg.SenderID, err)
	}

	return nil
}
