package domain

import "time"

// SystemSenderID marks messages written by the platform rather than a user.
const SystemSenderID = "system"

type ChatRoom struct {
	ID              int64      `json:"id"`
	User1ID         string     `json:"user1_id"`
	User2ID         string     `json:"user2_id"`
	ItemID          *int64     `json:"item_id,omitempty"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (r *ChatRoom) HasMember(userID string) bool {
	return r.User1ID == userID || r.User2ID == userID
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomKey identifies the negotiation channel between two users about one item.
// The pair is unordered: (a, b) and (b, a) name the same room.
type RoomKey struct {
	UserA  string
	UserB  string
	ItemID int64
}

func NewRoomKey(a, b string, itemID int64) RoomKey {
	if b < a {
		a, b = b, a
	}
	return RoomKey{UserA: a, UserB: b, ItemID: itemID}
}

// RoomKeyOf is the room a rental's system messages are written to.
func RoomKeyOf(r *Rental) RoomKey {
	return NewRoomKey(r.BorrowerID, r.OwnerID, r.ItemID)
}
