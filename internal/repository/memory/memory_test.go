package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

func seed(t *testing.T, s *Store, id string, balance int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Repos().Users.Create(ctx, &domain.User{ID: id, Email: id + "@example.com"}))
	if balance > 0 {
		_, err := s.Repos().Ledger.Apply(ctx, domain.LedgerEntry{UserID: id, Amount: balance, Type: domain.TransactionTypeCharge})
		require.NoError(t, err)
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "u1", 1000)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Ledger.Apply(ctx, domain.LedgerEntry{UserID: "u1", Amount: 400, Debit: true, Type: domain.TransactionTypePayment}); err != nil {
			return err
		}
		if err := repos.Users.Create(ctx, &domain.User{ID: "u2", Email: "u2@example.com"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	balance, err := s.Repos().Ledger.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
	txns, err := s.Repos().Ledger.ListTransactions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	_, err = s.Repos().Users.GetByID(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_WithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "u1", 0)

	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		_, err := repos.Ledger.Apply(ctx, domain.LedgerEntry{UserID: "u1", Amount: 250, Type: domain.TransactionTypeCharge})
		return err
	})
	require.NoError(t, err)

	balance, err := s.Repos().Ledger.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)
}

func TestLedgerRepository_Apply(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "u1", 500)
	ledger := s.Repos().Ledger

	_, err := ledger.Apply(ctx, domain.LedgerEntry{UserID: "u1", Amount: 501, Debit: true, Type: domain.TransactionTypeWithdraw})
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(501), insufficient.Required)
	assert.Equal(t, int64(500), insufficient.Current)

	txn, err := ledger.Apply(ctx, domain.LedgerEntry{UserID: "u1", Amount: 500, Debit: true, Type: domain.TransactionTypeWithdraw})
	require.NoError(t, err)
	assert.Equal(t, int64(-500), txn.Amount)

	_, err = ledger.Apply(ctx, domain.LedgerEntry{UserID: "u1", Amount: 0, Type: domain.TransactionTypeCharge})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ledger.Apply(ctx, domain.LedgerEntry{UserID: "ghost", Amount: 1, Type: domain.TransactionTypeCharge})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	sums, err := ledger.ListBalanceSums(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BalanceMismatch{{UserID: "u1", Balance: 0, LedgerSum: 0}}, sums)
}

func TestLedgerRepository_CreditCannotWrapBalance(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Repos().Users.Create(ctx, &domain.User{ID: "rich", Email: "rich@example.com", Balance: math.MaxInt64 - 10}))
	ledger := s.Repos().Ledger

	_, err := ledger.Apply(ctx, domain.LedgerEntry{UserID: "rich", Amount: 11, Type: domain.TransactionTypeCharge})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ledger.Apply(ctx, domain.LedgerEntry{UserID: "rich", Amount: math.MaxInt64, Type: domain.TransactionTypeCharge})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	balance, err := ledger.GetBalance(ctx, "rich")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-10), balance)
	txns, err := ledger.ListTransactions(ctx, "rich", 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestRentalRepository_StatusAndQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rentals := s.Repos().Rentals

	renting := &domain.Rental{ItemID: 1, BorrowerID: "b", OwnerID: "o", Status: domain.RentalStatusRequested, EndDate: "2025-03-05", TotalFee: 100, DepositHeld: 50}
	require.NoError(t, rentals.Create(ctx, renting))
	later := &domain.Rental{ItemID: 1, BorrowerID: "b", OwnerID: "o", Status: domain.RentalStatusRenting, EndDate: "2025-03-20", TotalFee: 10, DepositHeld: 5}
	require.NoError(t, rentals.Create(ctx, later))

	require.NoError(t, rentals.UpdateStatus(ctx, renting.ID, domain.RentalStatusRequested, domain.RentalStatusRenting))
	err := rentals.UpdateStatus(ctx, renting.ID, domain.RentalStatusRequested, domain.RentalStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrConflictRetry)
	assert.ErrorIs(t, rentals.UpdateStatus(ctx, 99, domain.RentalStatusRequested, domain.RentalStatusAccepted), domain.ErrRentalNotFound)

	overdue, err := rentals.ListOverdue(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, renting.ID, overdue[0].ID)

	n, err := rentals.CountByStatus(ctx, domain.HeldStatuses)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	sum, err := rentals.SumHeld(ctx, domain.HeldStatuses)
	require.NoError(t, err)
	assert.Equal(t, int64(165), sum)

	mine, err := rentals.ListByUser(ctx, "o")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, later.ID, mine[0].ID)
}

func TestChatRepository_RoomIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	chat := s.Repos().Chat

	a, err := chat.GetOrCreateRoom(ctx, domain.NewRoomKey("x", "y", 3))
	require.NoError(t, err)
	b, err := chat.GetOrCreateRoom(ctx, domain.NewRoomKey("y", "x", 3))
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	other, err := chat.GetOrCreateRoom(ctx, domain.NewRoomKey("x", "y", 4))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, other.ID)

	require.NoError(t, chat.AddMessage(ctx, &domain.ChatMessage{RoomID: a.ID, SenderID: domain.SystemSenderID, Text: "Rental started", IsSystem: true}))
	room, err := chat.GetRoom(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rental started", room.LastMessage)
	require.NotNil(t, room.LastMessageTime)

	assert.ErrorIs(t, chat.AddMessage(ctx, &domain.ChatMessage{RoomID: 404, Text: "x"}), domain.ErrRoomNotFound)
}

func TestReviewRepository_OnePerReviewer(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	reviews := s.Repos().Reviews

	require.NoError(t, reviews.Create(ctx, &domain.Review{RentalID: 1, ItemID: 2, ReviewerID: "b", TargetID: "o", Score: 5}))
	assert.ErrorIs(t, reviews.Create(ctx, &domain.Review{RentalID: 1, ItemID: 2, ReviewerID: "b", TargetID: "o", Score: 1}), domain.ErrAlreadyExists)
	require.NoError(t, reviews.Create(ctx, &domain.Review{RentalID: 1, ItemID: 2, ReviewerID: "o", TargetID: "b", Score: 4}))

	list, err := reviews.ListByItem(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
