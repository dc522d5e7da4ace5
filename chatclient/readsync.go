package chatclient

import (
	"context"
	"log"
)

// ReadSync transitions a conversation from "has unread" to "read" when it
// is opened.
type ReadSync struct {
	api *Client
	agg *Aggregator
}

func NewReadSync(api *Client, agg *Aggregator) *ReadSync {
	return &ReadSync{api: api, agg: agg}
}

// MarkConversationRead acknowledges everything counterpart has sent to
// sessionUser. The local count is zeroed only after the server confirms;
// zeroing optimistically would mask a real unread count if the call failed.
// After zeroing, the authoritative map is re-fetched to reconcile any
// increment that raced the acknowledgement; a failed re-fetch keeps the
// zeroed state (it self-heals on the next open).
func (rs *ReadSync) MarkConversationRead(ctx context.Context, sessionUser, counterpart uint) error {
	if err := rs.api.MarkRead(ctx, counterpart, sessionUser); err != nil {
		// Leave the local count untouched; the discrepancy resolves on the
		// next successful attempt.
		return err
	}

	rs.agg.Zero(counterpart)

	counts, err := rs.api.UnreadCounts(ctx, sessionUser)
	if err != nil {
		log.Printf("chatclient: unread reconcile failed: %v", err)
		return nil
	}
	rs.agg.SetCounts(counts)
	return nil
}
