package postgres

import (
	"context"
	"database/sql"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type chatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) repository.ChatRepository {
	return &chatRepository{db: db}
}

const roomColumns = `id, user1_id, user2_id, item_id, last_message, last_message_time, created_at`

// GetOrCreateRoom relies on RoomKey ordering its user pair, so the unique
// constraint on (user1_id, user2_id, item_id) sees one row per negotiation.
func (r *chatRepository) GetOrCreateRoom(ctx context.Context, key domain.RoomKey) (*domain.ChatRoom, error) {
	insert := `INSERT INTO chat_rooms (user1_id, user2_id, item_id) VALUES ($1, $2, $3)
	           ON CONFLICT (user1_id, user2_id, item_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, key.UserA, key.UserB, key.ItemID); err != nil {
		return nil, err
	}
	query := `SELECT ` + roomColumns + ` FROM chat_rooms WHERE user1_id = $1 AND user2_id = $2 AND item_id = $3`
	room, err := scanRoom(r.db.QueryRowContext(ctx, query, key.UserA, key.UserB, key.ItemID))
	if err != nil {
		return nil, notFound(err, domain.ErrRoomNotFound)
	}
	return room, nil
}

func (r *chatRepository) GetRoom(ctx context.Context, id int64) (*domain.ChatRoom, error) {
	query := `SELECT ` + roomColumns + ` FROM chat_rooms WHERE id = $1`
	room, err := scanRoom(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrRoomNotFound)
	}
	return room, nil
}

func (r *chatRepository) ListRooms(ctx context.Context, userID string) ([]domain.ChatRoom, error) {
	query := `SELECT ` + roomColumns + ` FROM chat_rooms WHERE user1_id = $1 OR user2_id = $1
	          ORDER BY COALESCE(last_message_time, created_at) DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.ChatRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	insert := `INSERT INTO chat_messages (room_id, sender_id, text, is_system) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, insert, msg.RoomID, msg.SenderID, msg.Text, msg.IsSystem).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE chat_rooms SET last_message=$1, last_message_time=$2 WHERE id=$3`, msg.Text, msg.CreatedAt, msg.RoomID)
	return expectOne(res, err, domain.ErrRoomNotFound)
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	query := `SELECT id, room_id, sender_id, text, is_system, created_at FROM chat_messages WHERE room_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &m.IsSystem, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanRoom(row rowScanner) (*domain.ChatRoom, error) {
	room := &domain.ChatRoom{}
	var itemID sql.NullInt64
	var lastTime sql.NullTime
	if err := row.Scan(&room.ID, &room.User1ID, &room.User2ID, &itemID, &room.LastMessage, &lastTime, &room.CreatedAt); err != nil {
		return nil, err
	}
	if itemID.Valid {
		id := itemID.Int64
		room.ItemID = &id
	}
	if lastTime.Valid {
		t := lastTime.Time
		room.LastMessageTime = &t
	}
	return room, nil
}
