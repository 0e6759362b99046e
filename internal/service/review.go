package service

import (
	"context"
	"fmt"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type reviewService struct {
	store repository.Store
}

func NewReviewService(store repository.Store) ReviewService {
	return &reviewService{store: store}
}

// CreateReview records a party's review of the other party once the rental is completed.
func (s *reviewService) CreateReview(ctx context.Context, reviewerID string, rentalID int64, score int, comment string) (*domain.Review, error) {
	repos := s.store.Repos()
	rt, err := repos.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	var target string
	switch rt.RoleOf(reviewerID) {
	case domain.RoleBorrower:
		target = rt.OwnerID
	case domain.RoleOwner:
		target = rt.BorrowerID
	default:
		return nil, domain.ErrUnauthorized
	}
	if rt.Status != domain.RentalStatusCompleted {
		return nil, fmt.Errorf("%w: only completed rentals can be reviewed", domain.ErrInvalidTransition)
	}

	review := &domain.Review{
		RentalID:   rt.ID,
		ItemID:     rt.ItemID,
		ReviewerID: reviewerID,
		TargetID:   target,
		Score:      score,
		Comment:    comment,
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := repos.Reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ListItemReviews(ctx context.Context, itemID int64) ([]domain.Review, error) {
	return s.store.Repos().Reviews.ListByItem(ctx, itemID)
}
