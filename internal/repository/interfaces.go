package repository

import (
	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
	List(limit int) ([]models.User, error)
	UpdateOnlineStatus(userID uint, isOnline bool) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByClientID(clientID string, senderID uint) (*models.Message, error)
	FindConversation(userID1, userID2 uint) ([]models.Message, error)
	UnreadCounts(userID uint) (map[uint]int64, error)
	LastMessages(userID uint) (map[uint]models.LastMessage, error)
	MarkConversationRead(senderID, receiverID uint) (int64, error)
}
