package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/repository/postgres"
)

func TestStore_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE items SET is_deleted = TRUE").
			WithArgs(int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			return repos.Items.SoftDelete(ctx, 4)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE rentals SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(repos repository.Repositories) error {
			return repos.Rentals.UpdateStatus(ctx, 1, domain.RentalStatusAccepted, domain.RentalStatusPaid)
		})
		assert.True(t, errors.Is(err, domain.ErrConflictRetry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
