package domain

import "time"

// Notification is a best-effort message emitted after a committed state change.
// It is written to the chat room named by Room and optionally fanned out to the
// recipients' email and push channels.
type Notification struct {
	Room       RoomKey
	Title      string
	Text       string
	RentalID   int64
	Recipients []string
	CreatedAt  time.Time
}
