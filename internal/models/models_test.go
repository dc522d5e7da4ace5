package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserToResponse(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:           1,
		Name:         "John Hauler",
		Email:        "john@example.com",
		PasswordHash: "secret-hash",
		Role:         RoleDriver,
		IsOnline:     true,
		LastSeen:     &now,
	}

	response := user.ToResponse()

	if response.ID != user.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, user.ID)
	}
	if response.Name != user.Name {
		t.Errorf("ToResponse Name = %q, want %q", response.Name, user.Name)
	}
	if response.Email != user.Email {
		t.Errorf("ToResponse Email = %q, want %q", response.Email, user.Email)
	}
	if response.Role != user.Role {
		t.Errorf("ToResponse Role = %q, want %q", response.Role, user.Role)
	}
	if response.IsOnline != user.IsOnline {
		t.Errorf("ToResponse IsOnline = %v, want %v", response.IsOnline, user.IsOnline)
	}
	if response.LastSeen == nil {
		t.Errorf("ToResponse LastSeen is nil")
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	user := &User{
		ID:           1,
		Name:         "John Hauler",
		Email:        "john@example.com",
		PasswordHash: "secret-hash",
		Role:         RoleDriver,
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("password hash leaked into JSON: %s", data)
	}
}

func TestMessageToResponse(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	message := &Message{
		ID:         10,
		ClientID:   "client-123",
		SenderID:   1,
		ReceiverID: 2,
		Content:    "On my way",
		Timestamp:  ts,
		IsRead:     true,
	}

	response := message.ToResponse()

	if response.ID != message.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, message.ID)
	}
	if response.ClientID != message.ClientID {
		t.Errorf("ToResponse ClientID = %q, want %q", response.ClientID, message.ClientID)
	}
	if response.SenderID != message.SenderID || response.ReceiverID != message.ReceiverID {
		t.Errorf("ToResponse participants = %d->%d, want %d->%d",
			response.SenderID, response.ReceiverID, message.SenderID, message.ReceiverID)
	}
	if !response.Timestamp.Equal(ts) {
		t.Errorf("ToResponse Timestamp = %v, want %v", response.Timestamp, ts)
	}
	if !response.IsRead {
		t.Errorf("ToResponse IsRead = false, want true")
	}
}

// The dashboard reads messages with sender/receiver field names; the gorm
// column names must not leak into the wire shape.
func TestMessageJSONFieldNames(t *testing.T) {
	message := &Message{
		ID:         1,
		SenderID:   1,
		ReceiverID: 2,
		Content:    "hi",
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"sender", "receiver", "content", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("wire JSON missing %q: %s", key, data)
		}
	}
	if _, ok := fields["SenderID"]; ok {
		t.Errorf("struct field name leaked into JSON")
	}
}
