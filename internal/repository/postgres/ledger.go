package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/repository"
)

type ledgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

// numericOutOfRange is raised when balance + amount leaves bigint.
const numericOutOfRange pq.ErrorCode = "22003"

const (
	creditQuery = `UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`
	// The balance guard makes check-and-deduct one statement.
	debitQuery = `UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`
)

func (r *ledgerRepository) Apply(ctx context.Context, e domain.LedgerEntry) (*domain.Transaction, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	query := creditQuery
	if e.Debit {
		query = debitQuery
	}
	logger.DatabaseCall("ledger.apply", query, "user_id", e.UserID, "amount", e.SignedAmount(), "type", e.Type)

	var balance int64
	err := r.db.QueryRowContext(ctx, query, e.Amount, e.UserID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetBalance(ctx, e.UserID)
		if getErr != nil {
			return nil, getErr
		}
		if e.Debit {
			return nil, domain.NewInsufficientFunds(e.Amount, current)
		}
		return nil, domain.ErrUserNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == numericOutOfRange {
		logger.DatabaseResult("ledger.apply", 0, err)
		return nil, domain.Invalid("balance would overflow")
	}
	if err != nil {
		logger.DatabaseResult("ledger.apply", 0, err)
		return nil, err
	}

	txn := &domain.Transaction{
		UserID:          e.UserID,
		Type:            e.Type,
		Amount:          e.SignedAmount(),
		Description:     e.Description,
		RelatedRentalID: e.RelatedRentalID,
	}
	var related sql.NullInt64
	if e.RelatedRentalID != nil {
		related = sql.NullInt64{Int64: *e.RelatedRentalID, Valid: true}
	}
	insert := `INSERT INTO transactions (user_id, type, amount, description, related_rental_id)
	           VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	if err := r.db.QueryRowContext(ctx, insert, txn.UserID, txn.Type, txn.Amount, txn.Description, related).Scan(&txn.ID, &txn.CreatedAt); err != nil {
		logger.DatabaseResult("ledger.apply", 0, err)
		return nil, err
	}
	logger.DatabaseResult("ledger.apply", 1, nil, "balance", balance)
	return txn, nil
}

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, notFound(err, domain.ErrUserNotFound)
	}
	return balance, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, type, amount, description, related_rental_id, created_at
	          FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var related sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &related, &t.CreatedAt); err != nil {
			return nil, err
		}
		if related.Valid {
			id := related.Int64
			t.RelatedRentalID = &id
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *ledgerRepository) ListBalanceSums(ctx context.Context) ([]domain.BalanceMismatch, error) {
	query := `SELECT u.id, u.balance, COALESCE(SUM(t.amount), 0)
	          FROM users u LEFT JOIN transactions t ON t.user_id = u.id
	          GROUP BY u.id, u.balance ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BalanceMismatch
	for rows.Next() {
		var m domain.BalanceMismatch
		if err := rows.Scan(&m.UserID, &m.Balance, &m.LedgerSum); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
