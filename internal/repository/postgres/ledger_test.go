package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository/postgres"
)

func TestLedgerRepository_Apply(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLedgerRepository(db)
	ctx := context.Background()
	rentalID := int64(7)

	t.Run("Debit", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE users SET balance = balance - \$1 WHERE id = \$2 AND balance >= \$1`).
			WithArgs(int64(80000), "borrower").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(20000)))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("borrower", domain.TransactionTypePayment, int64(-80000), "fee + deposit", int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), time.Now()))

		txn, err := repo.Apply(ctx, domain.LedgerEntry{
			UserID:          "borrower",
			Amount:          80000,
			Debit:           true,
			Type:            domain.TransactionTypePayment,
			Description:     "fee + deposit",
			RelatedRentalID: &rentalID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), txn.ID)
		assert.Equal(t, int64(-80000), txn.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Credit out of bigint range", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1 WHERE id = \$2`).
			WithArgs(domain.MaxAmount, "rich").
			WillReturnError(&pq.Error{Code: "22003", Message: "bigint out of range"})

		txn, err := repo.Apply(ctx, domain.LedgerEntry{UserID: "rich", Amount: domain.MaxAmount, Type: domain.TransactionTypeCharge})
		assert.Nil(t, txn)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Debit insufficient funds", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE users SET balance = balance - `).
			WithArgs(int64(80000), "borrower").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1`).
			WithArgs("borrower").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(10000)))

		txn, err := repo.Apply(ctx, domain.LedgerEntry{UserID: "borrower", Amount: 80000, Debit: true, Type: domain.TransactionTypePayment})
		assert.Nil(t, txn)
		var ife *domain.InsufficientFundsError
		require.True(t, errors.As(err, &ife))
		assert.Equal(t, int64(80000), ife.Required)
		assert.Equal(t, int64(10000), ife.Current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Credit unknown user", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1 WHERE id = \$2`).
			WithArgs(int64(500), "ghost").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT balance FROM users`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := repo.Apply(ctx, domain.LedgerEntry{UserID: "ghost", Amount: 500, Type: domain.TransactionTypeCharge})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListBalanceSums(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewLedgerRepository(db)

	mock.ExpectQuery("SELECT u.id, u.balance, COALESCE\\(SUM\\(t.amount\\), 0\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "sum"}).
			AddRow("a", int64(100000), int64(100000)).
			AddRow("b", int64(500), int64(0)))

	sums, err := repo.ListBalanceSums(context.Background())
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, domain.BalanceMismatch{UserID: "b", Balance: 500, LedgerSum: 0}, sums[1])
}
