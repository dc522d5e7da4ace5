package repository

import (
	"time"

	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("client_id = ? AND sender_id = ?", clientID, senderID).First(&message).Error
	return &message, err
}

// FindConversation returns the full history between two users in
// chronological order. The dashboard loads the whole conversation on every
// switch, so there is no pagination here.
func (r *MessageRepository) FindConversation(userID1, userID2 uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID1, userID2, userID2, userID1).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// UnreadCounts returns, per peer, how many messages addressed to userID are
// still unread.
func (r *MessageRepository) UnreadCounts(userID uint) (map[uint]int64, error) {
	type row struct {
		SenderID uint  `gorm:"column:sender_id"`
		Count    int64 `gorm:"column:count"`
	}
	var rows []row
	err := r.db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = false", userID).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Count
	}
	return counts, nil
}

// LastMessageRow is one denormalized preview row: the newest message for a
// single peer, in either direction.
type LastMessageRow struct {
	PeerID    uint      `gorm:"column:peer_id"`
	Content   string    `gorm:"column:content"`
	Timestamp time.Time `gorm:"column:ts"`
}

// LastMessages returns the newest message per peer, in either direction.
// A window function picks one row per peer in a single query (no N+1).
func (r *MessageRepository) LastMessages(userID uint) (map[uint]models.LastMessage, error) {
	query := `
WITH ranked AS (
	SELECT
		CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS peer_id,
		m.content AS content,
		m.timestamp AS ts,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END
			ORDER BY m.timestamp DESC, m.id DESC
		) AS rn
	FROM messages m
	WHERE m.deleted_at IS NULL
		AND (m.sender_id = ? OR m.receiver_id = ?)
)
SELECT peer_id, content, ts FROM ranked WHERE rn = 1`

	var rows []LastMessageRow
	if err := r.db.Raw(query, userID, userID, userID, userID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	last := make(map[uint]models.LastMessage, len(rows))
	for _, row := range rows {
		last[row.PeerID] = models.LastMessage{Content: row.Content, Timestamp: row.Timestamp}
	}
	return last, nil
}

// MarkConversationRead marks every unread message from senderID to
// receiverID as read and reports how many rows changed. Zero rows is a
// success, which is what makes the endpoint idempotent.
func (r *MessageRepository) MarkConversationRead(senderID, receiverID uint) (int64, error) {
	res := r.db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = false", senderID, receiverID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("NOW()"),
		})
	return res.RowsAffected, res.Error
}
