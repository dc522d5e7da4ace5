package handlers

import (
	"strconv"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/cache"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/httpx"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/service"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messageService *service.MessageService
	messageCache   *cache.MessageCache
}

func NewMessageHandler(messageService *service.MessageService, messageCache *cache.MessageCache) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		messageCache:   messageCache,
	}
}

// GetMessages returns the full conversation history between sender and
// receiver, chronological. `{"messages": []}` when the pair has never
// talked; the dashboard renders that as "No messages yet".
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	senderID, ok := validation.ParseUserID(c.Query("sender"))
	if !ok {
		return httpx.BadRequest(c, "missing_sender", "sender is required")
	}
	receiverID, ok := validation.ParseUserID(c.Query("receiver"))
	if !ok {
		return httpx.BadRequest(c, "missing_receiver", "receiver is required")
	}

	// Callers may only read conversations they participate in.
	if senderID != userID && receiverID != userID {
		return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
	}

	var messages []models.Message
	if cached, ok := h.messageCache.GetConversation(senderID, receiverID); ok {
		messages = cached
	} else {
		messages, err = h.messageService.GetConversation(senderID, receiverID)
		if err != nil {
			return httpx.Internal(c, "fetch_messages_failed")
		}
		if len(messages) > 0 {
			_ = h.messageCache.SetConversation(senderID, receiverID, messages)
		}
	}

	responses := make([]models.MessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = msg.ToResponse()
	}

	return c.JSON(fiber.Map{"messages": responses})
}

// GetUnreadCounts returns the per-peer unread map for the session user.
func (h *MessageHandler) GetUnreadCounts(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	queryID, ok := validation.ParseUserID(c.Query("userId"))
	if !ok {
		return httpx.BadRequest(c, "missing_user_id", "userId is required")
	}
	if queryID != userID {
		return httpx.Forbidden(c, "user_mismatch", "Cannot read another user's unread counts")
	}

	counts, cached := h.messageCache.GetUnreadCounts(userID)
	if !cached {
		counts, err = h.messageService.UnreadCounts(userID)
		if err != nil {
			return httpx.Internal(c, "fetch_unread_failed")
		}
		_ = h.messageCache.SetUnreadCounts(userID, counts)
	}

	// JSON object keys are strings; peers are serialized as decimal ids.
	out := make(map[string]int64, len(counts))
	for peer, n := range counts {
		out[strconv.FormatUint(uint64(peer), 10)] = n
	}

	return c.JSON(fiber.Map{"unreadCounts": out})
}

// GetLastMessages returns the per-peer last-message preview map.
func (h *MessageHandler) GetLastMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	queryID, ok := validation.ParseUserID(c.Query("userId"))
	if !ok {
		return httpx.BadRequest(c, "missing_user_id", "userId is required")
	}
	if queryID != userID {
		return httpx.Forbidden(c, "user_mismatch", "Cannot read another user's previews")
	}

	last, cached := h.messageCache.GetLastMessages(userID)
	if !cached {
		last, err = h.messageService.LastMessages(userID)
		if err != nil {
			return httpx.Internal(c, "fetch_last_messages_failed")
		}
		_ = h.messageCache.SetLastMessages(userID, last)
	}

	out := make(map[string]models.LastMessage, len(last))
	for peer, lm := range last {
		out[strconv.FormatUint(uint64(peer), 10)] = lm
	}

	return c.JSON(fiber.Map{"lastMessages": out})
}

type markReadInput struct {
	Sender   uint `json:"sender"`
	Receiver uint `json:"receiver"`
}

// MarkRead marks everything `sender` has sent to `receiver` as read.
// Idempotent: nothing unread is still a 200.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input markReadInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	senderID := input.Sender
	receiverID := input.Receiver
	if senderID == 0 {
		return httpx.BadRequest(c, "missing_sender", "sender is required")
	}
	if receiverID == 0 {
		return httpx.BadRequest(c, "missing_receiver", "receiver is required")
	}

	// Only the recipient may acknowledge reads.
	if receiverID != userID {
		return httpx.Forbidden(c, "user_mismatch", "Cannot mark another user's messages read")
	}

	updated, err := h.messageService.MarkConversationRead(senderID, receiverID)
	if err != nil {
		return httpx.Internal(c, "mark_read_failed")
	}

	if updated > 0 {
		_ = h.messageCache.InvalidateUnreadCounts(receiverID)
		_ = h.messageCache.InvalidateConversation(senderID, receiverID)
	}

	return c.JSON(fiber.Map{"updated": updated})
}

// SendMessage persists one message. The live-channel announcement is the
// client's job after this call succeeds; persistence here is the only
// source of truth.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input struct {
		Sender uint `json:"sender"`
		service.SendMessageInput
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.Sender != 0 && input.Sender != userID {
		return httpx.Forbidden(c, "user_mismatch", "Cannot send as another user")
	}

	input.Content = validation.TrimAndLimit(input.Content, validation.MaxMessageLength())
	if input.Content == "" {
		return httpx.BadRequest(c, "missing_content", "Content is required")
	}
	if input.ReceiverID == 0 {
		return httpx.BadRequest(c, "missing_receiver", "receiver is required")
	}

	message, duplicate, err := h.messageService.SendMessage(userID, input.SendMessageInput)
	if err != nil {
		return httpx.Internal(c, "send_message_failed")
	}

	if !duplicate {
		h.messageCache.InvalidateForSend(userID, input.ReceiverID)
	}

	status := fiber.StatusCreated
	if duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(message.ToResponse())
}
