package handlers

import (
	"log"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/cache"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/handlers/ws"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/service"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	messageService *service.MessageService
	userService    *service.UserService
	hub            *ws.Hub
	presenceCache  *cache.PresenceCache
}

func NewWebSocketHandler(messageService *service.MessageService, userService *service.UserService, presenceCache *cache.PresenceCache) *WebSocketHandler {
	return &WebSocketHandler{
		messageService: messageService,
		userService:    userService,
		hub:            ws.NewHub(),
		presenceCache:  presenceCache,
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)

	h.hub.Register(userID, c)

	// Presence flips online in cache and DB off the read loop.
	go func() {
		if err := h.presenceCache.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online in cache: %v", userID, err)
		}
		if err := h.userService.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online in DB: %v", userID, err)
		}
	}()

	defer func() {
		h.hub.Unregister(userID)
		go func() {
			if err := h.presenceCache.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline in cache: %v", userID, err)
			}
			if err := h.userService.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline in DB: %v", userID, err)
			}
		}()
	}()

	log.Printf("User %d connected via WebSocket", userID)

	ctx := &ws.MessageContext{
		UserID:         userID,
		Conn:           c,
		Hub:            h.hub,
		MessageService: h.messageService,
		UserService:    h.userService,
		PresenceCache:  h.presenceCache,
	}

	for {
		_, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			ws.SendError(c, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			ws.SendError(c, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
