package service

import (
	"context"
	"fmt"
	"strings"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

const maxMessageLength = 2000

type chatService struct {
	store repository.Store
}

func NewChatService(store repository.Store) ChatService {
	return &chatService{store: store}
}

func (s *chatService) OpenRoom(ctx context.Context, actorID, otherUserID string, itemID int64) (*domain.ChatRoom, error) {
	if otherUserID == "" || otherUserID == actorID {
		return nil, domain.Invalid("a chat room needs another user")
	}
	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, otherUserID); err != nil {
		return nil, err
	}
	if itemID != 0 {
		if _, err := repos.Items.GetByID(ctx, itemID); err != nil {
			return nil, err
		}
	}
	return repos.Chat.GetOrCreateRoom(ctx, domain.NewRoomKey(actorID, otherUserID, itemID))
}

func (s *chatService) ListRooms(ctx context.Context, actorID string) ([]domain.ChatRoom, error) {
	return s.store.Repos().Chat.ListRooms(ctx, actorID)
}

func (s *chatService) ListMessages(ctx context.Context, actorID string, roomID int64) ([]domain.ChatMessage, error) {
	repos := s.store.Repos()
	if _, err := s.memberRoom(ctx, repos, actorID, roomID); err != nil {
		return nil, err
	}
	return repos.Chat.ListMessages(ctx, roomID)
}

func (s *chatService) SendMessage(ctx context.Context, actorID string, roomID int64, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("message text is required")
	}
	if len(text) > maxMessageLength {
		return nil, domain.Invalid(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	repos := s.store.Repos()
	if _, err := s.memberRoom(ctx, repos, actorID, roomID); err != nil {
		return nil, err
	}
	msg := &domain.ChatMessage{RoomID: roomID, SenderID: actorID, Text: text}
	if err := repos.Chat.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	return msg, nil
}

func (s *chatService) memberRoom(ctx context.Context, repos repository.Repositories, actorID string, roomID int64) (*domain.ChatRoom, error) {
	room, err := repos.Chat.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(actorID) {
		return nil, domain.ErrUnauthorized
	}
	return room, nil
}
