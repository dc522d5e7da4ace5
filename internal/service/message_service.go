package service

import (
	"errors"
	"time"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

type SendMessageInput struct {
	ReceiverID uint      `json:"receiver"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	ClientID   string    `json:"client_id"`
}

// SendMessage persists one direct message. The client-supplied timestamp is
// kept as the ordering key; a zero value falls back to the server clock.
// Resending the same client_id returns the already-persisted row instead of
// inserting a duplicate.
func (s *MessageService) SendMessage(senderID uint, input SendMessageInput) (*models.Message, bool, error) {
	if input.ClientID != "" {
		if existing, err := s.messageRepo.FindByClientID(input.ClientID, senderID); err == nil {
			return existing, true, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	clientID := input.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	message := &models.Message{
		ClientID:   clientID,
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		Content:    input.Content,
		Timestamp:  ts,
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, false, err
	}
	return message, false, nil
}

// GetConversation returns the full ordered history between two users.
// An empty conversation is an empty slice, never an error.
func (s *MessageService) GetConversation(userID1, userID2 uint) ([]models.Message, error) {
	messages, err := s.messageRepo.FindConversation(userID1, userID2)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (s *MessageService) UnreadCounts(userID uint) (map[uint]int64, error) {
	return s.messageRepo.UnreadCounts(userID)
}

func (s *MessageService) LastMessages(userID uint) (map[uint]models.LastMessage, error) {
	return s.messageRepo.LastMessages(userID)
}

// MarkConversationRead marks everything senderID has sent to receiverID as
// read. Calling it with nothing unread is a no-op that still succeeds.
func (s *MessageService) MarkConversationRead(senderID, receiverID uint) (int64, error) {
	return s.messageRepo.MarkConversationRead(senderID, receiverID)
}

func (s *MessageService) GetByClientID(clientID string, senderID uint) (*models.Message, error) {
	return s.messageRepo.FindByClientID(clientID, senderID)
}
