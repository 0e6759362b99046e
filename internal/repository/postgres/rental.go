package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/repository"
)

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, item_id, borrower_id, owner_id, status, start_date, end_date, total_fee, deposit_held, is_delivery, delivery_fee, created_at, updated_at`

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (item_id, borrower_id, owner_id, status, start_date, end_date, total_fee, deposit_held, is_delivery, delivery_fee, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		rt.ItemID, rt.BorrowerID, rt.OwnerID, rt.Status, rt.StartDate, rt.EndDate,
		rt.TotalFee, rt.DepositHeld, rt.IsDelivery, rt.DeliveryFee, now, now,
	).Scan(&rt.ID)
	if err != nil {
		return err
	}
	rt.CreatedAt, rt.UpdatedAt = now, now
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrRentalNotFound)
	}
	return rt, nil
}

func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("rentals.lock", query, "rental_id", id)
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrRentalNotFound)
	}
	return rt, nil
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RentalStatus) error {
	query := `UPDATE rentals SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	logger.DatabaseCall("rentals.update_status", query, "rental_id", id, "from", from, "to", to)
	res, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		logger.DatabaseResult("rentals.update_status", 0, err)
		return err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("rentals.update_status", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflictRetry
	}
	return nil
}

func (r *rentalRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE borrower_id = $1 OR owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) ListOverdue(ctx context.Context, asOf string) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND end_date < $2 ORDER BY end_date, id`
	rows, err := r.db.QueryContext(ctx, query, domain.RentalStatusRenting, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) CountByStatus(ctx context.Context, statuses []domain.RentalStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE status = ANY($1)`, pq.Array(statusStrings(statuses))).Scan(&n)
	return n, err
}

func (r *rentalRepository) SumHeld(ctx context.Context, statuses []domain.RentalStatus) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(deposit_held + total_fee), 0) FROM rentals WHERE status = ANY($1)`
	err := r.db.QueryRowContext(ctx, query, pq.Array(statusStrings(statuses))).Scan(&sum)
	return sum, err
}

func statusStrings(statuses []domain.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var start, end time.Time
	err := row.Scan(&rt.ID, &rt.ItemID, &rt.BorrowerID, &rt.OwnerID, &rt.Status, &start, &end,
		&rt.TotalFee, &rt.DepositHeld, &rt.IsDelivery, &rt.DeliveryFee, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rt.StartDate = start.Format(domain.DateLayout)
	rt.EndDate = end.Format(domain.DateLayout)
	return rt, nil
}
