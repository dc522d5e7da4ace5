package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
)

// MessageUserOnline is the presence announcement a client sends on every
// connect and reconnect.
type MessageUserOnline struct {
	UserID uint `json:"userId"`
}

func (msg *MessageUserOnline) GetType() string {
	return "userOnline"
}

// UnmarshalJSON accepts the id as a bare number, a quoted string (the
// dashboard sends whatever its user hook holds) or a {"userId": n} object.
func (msg *MessageUserOnline) UnmarshalJSON(data []byte) error {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil {
		msg.UserID = n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid userOnline payload %q", s)
		}
		msg.UserID = uint(id)
		return nil
	}

	var obj struct {
		UserID uint `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	msg.UserID = obj.UserID
	return nil
}

func (msg *MessageUserOnline) Process(ctx *MessageContext) error {
	// The connection is already bound to the authenticated user; the payload
	// id is ignored if it disagrees.
	if msg.UserID != 0 && msg.UserID != ctx.UserID {
		log.Printf("userOnline payload %d does not match connection user %d", msg.UserID, ctx.UserID)
	}

	if err := ctx.PresenceCache.RefreshUserOnline(ctx.UserID); err != nil {
		log.Printf("Failed to refresh presence for user %d: %v", ctx.UserID, err)
	}
	return ctx.UserService.SetUserOnline(ctx.UserID)
}
