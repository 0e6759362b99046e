package postgres

import (
	"context"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type reviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `INSERT INTO reviews (rental_id, item_id, reviewer_id, target_id, score, comment)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, rv.RentalID, rv.ItemID, rv.ReviewerID, rv.TargetID, rv.Score, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *reviewRepository) ListByItem(ctx context.Context, itemID int64) ([]domain.Review, error) {
	query := `SELECT id, rental_id, item_id, reviewer_id, target_id, score, comment, created_at
	          FROM reviews WHERE item_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.RentalID, &rv.ItemID, &rv.ReviewerID, &rv.TargetID, &rv.Score, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
