package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

func TestLedgerService_Wallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1")

	wallet, err := f.ledger.TopUp(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(welcomeBonus+defaultTopUp), wallet.Balance)
	require.Len(t, wallet.Transactions, 2)
	assert.Equal(t, domain.TransactionTypeCharge, wallet.Transactions[0].Type)

	wallet, err = f.ledger.TopUp(ctx, "u1", 1234)
	require.NoError(t, err)
	assert.Equal(t, int64(welcomeBonus+defaultTopUp+1234), wallet.Balance)

	wallet, err = f.ledger.Withdraw(ctx, "u1", 1234)
	require.NoError(t, err)
	assert.Equal(t, int64(welcomeBonus+defaultTopUp), wallet.Balance)
	assert.Equal(t, int64(-1234), wallet.Transactions[0].Amount)
	assert.Equal(t, domain.TransactionTypeWithdraw, wallet.Transactions[0].Type)

	_, err = f.ledger.Withdraw(ctx, "u1", 1_000_000)
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(welcomeBonus+defaultTopUp), insufficient.Current)

	_, err = f.ledger.Withdraw(ctx, "u1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.ledger.TopUp(ctx, "u1", -5)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.ledger.TopUp(ctx, "u1", domain.MaxAmount+1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.ledger.TopUp(ctx, "u1", math.MaxInt64)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.ledger.GetWallet(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	fresh, err := f.ledger.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, fresh.Transactions, 4)
}

func TestLedgerService_ReconcileReportsMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "good")

	// A user row created outside the ledger carries a balance with no history.
	require.NoError(t, f.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Users.Create(ctx, &domain.User{ID: "drifted", Email: "d@example.com", Balance: 500})
	}))

	report, err := f.ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CheckedUsers)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, domain.BalanceMismatch{UserID: "drifted", Balance: 500, LedgerSum: 0}, report.Mismatches[0])
}
