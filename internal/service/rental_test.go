package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
)

func TestRentalService_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 50000)

	rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 3, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusRequested, rt.Status)
	assert.Equal(t, int64(30000), rt.TotalFee)
	assert.Equal(t, int64(50000), rt.DepositHeld)
	assert.Equal(t, "2025-03-10", rt.StartDate)
	assert.Equal(t, "2025-03-13", rt.EndDate)
	assert.Equal(t, int64(welcomeBonus), f.balance(t, "borrower"), "creation must not move money")

	f.advance(t, rt.ID, step{domain.RentalStatusAccepted, "owner"})

	paid, err := f.rentals.ApplyTransition(ctx, rt.ID, domain.RentalStatusPaid, "borrower")
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusPaid, paid.Status)
	assert.Equal(t, int64(20000), f.balance(t, "borrower"))

	f.advance(t, rt.ID,
		step{domain.RentalStatusRenting, "owner"},
		step{domain.RentalStatusReturned, "borrower"},
		step{domain.RentalStatusCompleted, "owner"},
	)
	assert.Equal(t, int64(70000), f.balance(t, "borrower"))
	assert.Equal(t, int64(130000), f.balance(t, "owner"))

	txns, err := f.store.Repos().Ledger.ListTransactions(ctx, "borrower", 0)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, domain.TransactionTypeRefund, txns[0].Type)
	assert.Equal(t, int64(50000), txns[0].Amount)
	assert.Equal(t, domain.TransactionTypePayment, txns[1].Type)
	assert.Equal(t, int64(-80000), txns[1].Amount)
	require.NotNil(t, txns[1].RelatedRentalID)
	assert.Equal(t, rt.ID, *txns[1].RelatedRentalID)

	assert.Equal(t, []string{
		"Rental requested",
		"Rental request accepted",
		"Payment completed: fee 30000 + deposit 50000 held",
		"Rental started",
		"Item returned",
		"Rental completed. Deposit refunded.",
	}, f.notifier.Texts())

	report, err := f.ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CheckedUsers)
	assert.Empty(t, report.Mismatches)
}

func TestRentalService_ConcurrentPaymentDebitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 50000)

	rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 3, false)
	require.NoError(t, err)
	f.advance(t, rt.ID, step{domain.RentalStatusAccepted, "owner"})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.rentals.ApplyTransition(ctx, rt.ID, domain.RentalStatusPaid, "borrower")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflictRetry), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(20000), f.balance(t, "borrower"))

	txns, err := f.store.Repos().Ledger.ListTransactions(ctx, "borrower", 0)
	require.NoError(t, err)
	payments := 0
	for _, txn := range txns {
		if txn.Type == domain.TransactionTypePayment {
			payments++
		}
	}
	assert.Equal(t, 1, payments)
}

func TestRentalService_PaymentWithInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 50000)

	rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 3, false)
	require.NoError(t, err)
	f.advance(t, rt.ID, step{domain.RentalStatusAccepted, "owner"})

	_, err = f.ledger.Withdraw(ctx, "borrower", 90000)
	require.NoError(t, err)
	require.Equal(t, int64(10000), f.balance(t, "borrower"))

	_, err = f.rentals.ApplyTransition(ctx, rt.ID, domain.RentalStatusPaid, "borrower")
	require.Error(t, err)
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(80000), insufficient.Required)
	assert.Equal(t, int64(10000), insufficient.Current)

	stored, err := f.rentals.GetRental(ctx, "borrower", rt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusAccepted, stored.Status)
	assert.Equal(t, int64(10000), f.balance(t, "borrower"))

	report, err := f.ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches)
}

func TestRentalService_TransitionErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	f.addUser(t, "stranger")
	item := f.addItem(t, "owner", 10000, 0)

	rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		to      domain.RentalStatus
		actor   string
		wantErr error
	}{
		{"Borrower cannot accept", domain.RentalStatusAccepted, "borrower", domain.ErrForbidden},
		{"Owner cannot cancel", domain.RentalStatusCancelled, "owner", domain.ErrForbidden},
		{"Stranger is unauthorized", domain.RentalStatusAccepted, "stranger", domain.ErrUnauthorized},
		{"Stranger with an illegal status", domain.RentalStatusCompleted, "stranger", domain.ErrInvalidTransition},
		{"Skipping ahead", domain.RentalStatusPaid, "borrower", domain.ErrInvalidTransition},
		{"Same status", domain.RentalStatusRequested, "owner", domain.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rentals.ApplyTransition(ctx, rt.ID, tt.to, tt.actor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = f.rentals.ApplyTransition(ctx, 999, domain.RentalStatusAccepted, "owner")
	assert.ErrorIs(t, err, domain.ErrRentalNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.rentals.GetRental(ctx, "owner", rt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusRequested, stored.Status)
}

func TestRentalService_PairsOutsideTableAreInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	f.addUser(t, "stranger")
	item := f.addItem(t, "owner", 1000, 500)

	path := []step{
		{domain.RentalStatusAccepted, "owner"},
		{domain.RentalStatusPaid, "borrower"},
		{domain.RentalStatusRenting, "owner"},
		{domain.RentalStatusReturned, "borrower"},
		{domain.RentalStatusCompleted, "owner"},
	}
	rentalIn := map[domain.RentalStatus]int64{}
	for i := 0; i <= len(path); i++ {
		rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, false)
		require.NoError(t, err)
		f.advance(t, rt.ID, path[:i]...)
		stored, err := f.rentals.GetRental(ctx, "owner", rt.ID)
		require.NoError(t, err)
		rentalIn[stored.Status] = rt.ID
	}
	cancelled, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, false)
	require.NoError(t, err)
	f.advance(t, cancelled.ID, step{domain.RentalStatusCancelled, "borrower"})
	rentalIn[domain.RentalStatusCancelled] = cancelled.ID
	require.Len(t, rentalIn, len(domain.AllRentalStatuses))

	balances := map[string]int64{}
	for _, u := range []string{"owner", "borrower", "stranger"} {
		balances[u] = f.balance(t, u)
	}

	for _, from := range domain.AllRentalStatuses {
		for _, to := range domain.AllRentalStatuses {
			if _, ok := domain.LookupTransition(from, to); ok {
				continue
			}
			for _, actor := range []string{"owner", "borrower", "stranger"} {
				_, err := f.rentals.ApplyTransition(ctx, rentalIn[from], to, actor)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s by %s", from, to, actor)
			}
		}
	}

	for u, want := range balances {
		assert.Equal(t, want, f.balance(t, u), u)
	}
	for status, id := range rentalIn {
		stored, err := f.rentals.GetRental(ctx, "owner", id)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
	}
}

func TestRentalService_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 5000)

	cancelled, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 2, false)
	require.NoError(t, err)
	f.advance(t, cancelled.ID, step{domain.RentalStatusCancelled, "borrower"})

	completed, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 2, false)
	require.NoError(t, err)
	f.advance(t, completed.ID,
		step{domain.RentalStatusAccepted, "owner"},
		step{domain.RentalStatusPaid, "borrower"},
		step{domain.RentalStatusRenting, "owner"},
		step{domain.RentalStatusReturned, "borrower"},
		step{domain.RentalStatusCompleted, "owner"},
	)
	borrowerBalance := f.balance(t, "borrower")
	ownerBalance := f.balance(t, "owner")

	for _, id := range []int64{cancelled.ID, completed.ID} {
		for _, to := range domain.AllRentalStatuses {
			for _, actor := range []string{"owner", "borrower"} {
				_, err := f.rentals.ApplyTransition(ctx, id, to, actor)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		}
	}
	assert.Equal(t, borrowerBalance, f.balance(t, "borrower"))
	assert.Equal(t, ownerBalance, f.balance(t, "owner"))
}

func TestRentalService_CreateRental(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 50000)

	t.Run("Delivery adds the fee", func(t *testing.T) {
		rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, true)
		require.NoError(t, err)
		assert.Equal(t, int64(13000), rt.TotalFee)
		assert.Equal(t, int64(deliveryFee), rt.DeliveryFee)
		assert.True(t, rt.IsDelivery)
	})

	t.Run("Advisory balance check", func(t *testing.T) {
		_, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 10, false)
		var insufficient *domain.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, int64(150000), insufficient.Required)
		assert.Equal(t, int64(welcomeBonus), insufficient.Current)
	})

	t.Run("Zero days", func(t *testing.T) {
		_, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 0, false)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("Too many days", func(t *testing.T) {
		for _, days := range []int{domain.MaxRentalDays + 1, math.MaxInt32, 768614336404564648} {
			_, err := f.rentals.CreateRental(ctx, "borrower", item.ID, days, false)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument, "days=%d", days)
		}
		rentals, err := f.rentals.ListRentals(ctx, "borrower")
		require.NoError(t, err)
		for _, rt := range rentals {
			assert.Positive(t, rt.TotalFee)
		}
	})

	t.Run("Fee above the amount limit", func(t *testing.T) {
		pricey := f.addItem(t, "owner", domain.MaxAmount/10, 0)
		_, err := f.rentals.CreateRental(ctx, "borrower", pricey.ID, 11, false)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = f.rentals.CreateRental(ctx, "borrower", pricey.ID, 10, true)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("Own item", func(t *testing.T) {
		_, err := f.rentals.CreateRental(ctx, "owner", item.ID, 1, false)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Unknown item", func(t *testing.T) {
		_, err := f.rentals.CreateRental(ctx, "borrower", 404, 1, false)
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("Delivery not offered", func(t *testing.T) {
		pickup, err := f.items.CreateItem(ctx, "owner", CreateItemRequest{Title: "Ladder", PricePerDay: 1000})
		require.NoError(t, err)
		_, err = f.rentals.CreateRental(ctx, "borrower", pickup.ID, 1, true)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("Deleted item", func(t *testing.T) {
		gone := f.addItem(t, "owner", 1000, 0)
		require.NoError(t, f.items.DeleteItem(ctx, "owner", gone.ID))
		_, err := f.rentals.CreateRental(ctx, "borrower", gone.ID, 1, false)
		assert.ErrorIs(t, err, domain.ErrItemDeleted)
	})

	t.Run("Banned borrower", func(t *testing.T) {
		f.addUser(t, "banned")
		require.NoError(t, f.store.Repos().Users.SetBanned(ctx, "banned", true))
		_, err := f.rentals.CreateRental(ctx, "banned", item.ID, 1, false)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.ErrorIs(t, err, domain.ErrUserBanned)
	})
}

func TestRentalService_TermsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 10000, 20000)

	rt, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 2, false)
	require.NoError(t, err)

	_, err = f.items.UpdateItemTerms(ctx, "owner", item.ID, 40000, 0)
	require.NoError(t, err)

	f.advance(t, rt.ID,
		step{domain.RentalStatusAccepted, "owner"},
		step{domain.RentalStatusPaid, "borrower"},
	)
	assert.Equal(t, int64(welcomeBonus-40000), f.balance(t, "borrower"))

	next, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), next.TotalFee)
	assert.Zero(t, next.DepositHeld)
}

func TestRentalService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	f.addUser(t, "stranger")
	f.addAdmin(t, "admin")
	item := f.addItem(t, "owner", 1000, 0)

	first, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 1, false)
	require.NoError(t, err)
	second, err := f.rentals.CreateRental(ctx, "borrower", item.ID, 2, false)
	require.NoError(t, err)

	_, err = f.rentals.GetRental(ctx, "stranger", first.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	seen, err := f.rentals.GetRental(ctx, "admin", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, seen.ID)

	list, err := f.rentals.ListRentals(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	none, err := f.rentals.ListRentals(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRentalService_CorruptFeeSnapshotMovesNoMoney(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "owner")
	f.addUser(t, "borrower")
	item := f.addItem(t, "owner", 15000, 50000)

	rt := &domain.Rental{
		ItemID:      item.ID,
		BorrowerID:  "borrower",
		OwnerID:     "owner",
		Status:      domain.RentalStatusAccepted,
		TotalFee:    -40000,
		DepositHeld: 50000,
	}
	require.NoError(t, f.store.Repos().Rentals.Create(ctx, rt))

	_, err := f.rentals.ApplyTransition(ctx, rt.ID, domain.RentalStatusPaid, "borrower")
	require.Error(t, err)
	assert.Equal(t, int64(welcomeBonus), f.balance(t, "borrower"))

	stored, err := f.rentals.GetRental(ctx, "owner", rt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusAccepted, stored.Status)
}
