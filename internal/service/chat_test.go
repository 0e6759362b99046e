package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
)

func TestChatService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	f.addUser(t, "stranger")
	item := f.addItem(t, "owner", 1000, 0)
	svc := NewChatService(f.store)

	room, err := svc.OpenRoom(ctx, "borrower", "owner", item.ID)
	require.NoError(t, err)
	again, err := svc.OpenRoom(ctx, "owner", "borrower", item.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)

	_, err = svc.OpenRoom(ctx, "borrower", "borrower", item.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.OpenRoom(ctx, "borrower", "ghost", item.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	msg, err := svc.SendMessage(ctx, "borrower", room.ID, " Is it free on Sunday? ")
	require.NoError(t, err)
	assert.Equal(t, "Is it free on Sunday?", msg.Text)
	assert.False(t, msg.IsSystem)

	_, err = svc.SendMessage(ctx, "stranger", room.ID, "hi")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.SendMessage(ctx, "owner", room.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.SendMessage(ctx, "owner", room.ID, strings.Repeat("x", maxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	msgs, err := svc.ListMessages(ctx, "owner", room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	_, err = svc.ListMessages(ctx, "stranger", room.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	rooms, err := svc.ListRooms(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Is it free on Sunday?", rooms[0].LastMessage)
}
