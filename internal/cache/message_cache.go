package cache

import (
	"fmt"
	"time"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	ConversationTTL = 5 * time.Minute
	UnreadCountTTL  = 1 * time.Minute
	LastMessageTTL  = 1 * time.Minute
)

// MessageCache caches conversation history, unread-count maps and
// last-message previews. All methods tolerate a nil receiver so the service
// runs unchanged when Redis is down.
type MessageCache struct {
	redis *RedisCache
}

// NewMessageCache creates a new message cache
func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

// conversationKey generates a cache key for a conversation.
// The pair is order-independent, so always use the smaller ID first.
func conversationKey(userID1, userID2 uint) string {
	if userID1 > userID2 {
		userID1, userID2 = userID2, userID1
	}
	return fmt.Sprintf("conv:%d:%d", userID1, userID2)
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

func lastMessagesKey(userID uint) string {
	return fmt.Sprintf("lastmsg:%d", userID)
}

// GetConversation retrieves cached conversation messages
func (mc *MessageCache) GetConversation(userID1, userID2 uint) ([]models.Message, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(conversationKey(userID1, userID2))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetConversation caches conversation messages
func (mc *MessageCache) SetConversation(userID1, userID2 uint, messages []models.Message) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return mc.redis.Set(conversationKey(userID1, userID2), data, ConversationTTL)
}

// InvalidateConversation removes a conversation from cache
func (mc *MessageCache) InvalidateConversation(userID1, userID2 uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(conversationKey(userID1, userID2))
}

// GetUnreadCounts retrieves the cached unread-count map for a user
func (mc *MessageCache) GetUnreadCounts(userID uint) (map[uint]int64, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(unreadKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var counts map[uint]int64
	if err := msgpack.Unmarshal(data, &counts); err != nil {
		return nil, false
	}
	return counts, true
}

// SetUnreadCounts caches the unread-count map for a user
func (mc *MessageCache) SetUnreadCounts(userID uint, counts map[uint]int64) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(counts)
	if err != nil {
		return err
	}
	return mc.redis.Set(unreadKey(userID), data, UnreadCountTTL)
}

// InvalidateUnreadCounts removes the unread-count map from cache
func (mc *MessageCache) InvalidateUnreadCounts(userID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(unreadKey(userID))
}

// GetLastMessages retrieves the cached last-message preview map for a user
func (mc *MessageCache) GetLastMessages(userID uint) (map[uint]models.LastMessage, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(lastMessagesKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var last map[uint]models.LastMessage
	if err := msgpack.Unmarshal(data, &last); err != nil {
		return nil, false
	}
	return last, true
}

// SetLastMessages caches the last-message preview map for a user
func (mc *MessageCache) SetLastMessages(userID uint, last map[uint]models.LastMessage) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(last)
	if err != nil {
		return err
	}
	return mc.redis.Set(lastMessagesKey(userID), data, LastMessageTTL)
}

// InvalidateLastMessages removes the preview map from cache
func (mc *MessageCache) InvalidateLastMessages(userID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(lastMessagesKey(userID))
}

// InvalidateForSend drops every cache entry a new message makes stale: the
// conversation itself and both participants' preview maps, plus the
// receiver's unread map.
func (mc *MessageCache) InvalidateForSend(senderID, receiverID uint) {
	_ = mc.InvalidateConversation(senderID, receiverID)
	_ = mc.InvalidateUnreadCounts(receiverID)
	_ = mc.InvalidateLastMessages(senderID)
	_ = mc.InvalidateLastMessages(receiverID)
}
