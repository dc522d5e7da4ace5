package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one direct message between two dashboard users. Messages are
// immutable once created; the only mutable columns are the read markers.
type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// ClientID is a UUID generated by the sending client so that an
	// optimistic resend cannot create a second row.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender" json:"client_id,omitempty"`

	SenderID   uint `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender"`
	ReceiverID uint `gorm:"not null;index" json:"receiver"`

	Content string `gorm:"type:text;not null" json:"content"`

	// Timestamp is supplied by the sending client (its local send time) and
	// is the ordering key clients render by. CreatedAt stays server-side.
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// MessageResponse is the wire shape shared with the dashboard and the
// chatclient package.
type MessageResponse struct {
	ID         uint      `json:"id"`
	ClientID   string    `json:"client_id,omitempty"`
	SenderID   uint      `json:"sender"`
	ReceiverID uint      `json:"receiver"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		ClientID:   m.ClientID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	}
}

// LastMessage is the per-peer preview entry returned by /messages/last.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
