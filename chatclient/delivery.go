package chatclient

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// liveEmitter is the slice of ConnManager the Delivery coordinator needs.
type liveEmitter interface {
	EmitMessage(Message) error
}

// Delivery sends a message reliably and makes it visible with minimal
// latency: persist first, then announce over the live channel, then append
// locally. If persistence fails nothing else happens: the caller keeps the
// input content and may retry.
type Delivery struct {
	api   *Client
	live  liveEmitter
	store *MessageStore
}

func NewDelivery(api *Client, live liveEmitter, store *MessageStore) *Delivery {
	return &Delivery{api: api, live: live, store: store}
}

// Send persists and announces one message. The returned message is the
// server's copy, carrying the assigned id; the same client UUID rides on
// the optimistic local append, the live relay and any later history fetch,
// which is what keeps the message from ever appearing twice.
func (d *Delivery) Send(ctx context.Context, senderID, receiverID uint, content string) (Message, error) {
	msg := Message{
		ClientID:  uuid.NewString(),
		Sender:    senderID,
		Receiver:  receiverID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	persisted, err := d.api.Send(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	// The live announcement is best-effort: the message is durable already
	// and an offline counterpart recovers it from the next history fetch.
	if err := d.live.EmitMessage(persisted); err != nil {
		log.Printf("chatclient: live announce failed: %v", err)
	}

	d.store.Apply(persisted)
	return persisted, nil
}
