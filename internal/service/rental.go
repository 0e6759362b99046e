package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/repository"
)

type rentalService struct {
	store       repository.Store
	items       ItemService
	notifier    Notifier
	metrics     *metrics.Metrics
	deliveryFee int64
	now         func() time.Time
}

func NewRentalService(
	store repository.Store,
	items ItemService,
	notifier Notifier,
	m *metrics.Metrics,
	deliveryFee int64,
) RentalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &rentalService{
		store:       store,
		items:       items,
		notifier:    notifier,
		metrics:     m,
		deliveryFee: deliveryFee,
		now:         time.Now,
	}
}

func (s *rentalService) CreateRental(ctx context.Context, borrowerID string, itemID int64, days int, isDelivery bool) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateRental", "borrowerID", borrowerID, "itemID", itemID, "days", days, "isDelivery", isDelivery)
	repos := s.store.Repos()

	borrower, err := repos.Users.GetByID(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if borrower.IsBanned {
		return nil, fmt.Errorf("%w: %w", domain.ErrForbidden, domain.ErrUserBanned)
	}

	terms, err := s.items.GetActiveTerms(ctx, itemID)
	if err != nil {
		logger.ExitMethodWithError("rentalService.CreateRental", err, "itemID", itemID)
		return nil, err
	}
	if terms.OwnerID == borrowerID {
		return nil, fmt.Errorf("%w: cannot rent your own item", domain.ErrForbidden)
	}
	if isDelivery && !terms.CanDeliver {
		return nil, domain.Invalid("item is not available for delivery")
	}

	quote, err := domain.Quote(terms, days, isDelivery, s.deliveryFee, s.now())
	if err != nil {
		return nil, err
	}

	// Advisory only: the balance is checked again, atomically, when the borrower pays.
	if borrower.Balance < quote.Required() {
		logger.Info("Rental request rejected for balance", "borrowerID", borrowerID, "required", quote.Required(), "current", borrower.Balance)
		return nil, domain.NewInsufficientFunds(quote.Required(), borrower.Balance)
	}

	rental := &domain.Rental{
		ItemID:      itemID,
		BorrowerID:  borrowerID,
		OwnerID:     terms.OwnerID,
		Status:      domain.RentalStatusRequested,
		StartDate:   quote.StartDate,
		EndDate:     quote.EndDate,
		TotalFee:    quote.TotalFee,
		DepositHeld: quote.DepositHeld,
		IsDelivery:  isDelivery,
		DeliveryFee: quote.DeliveryFee,
	}
	if err := repos.Rentals.Create(ctx, rental); err != nil {
		return nil, fmt.Errorf("failed to create rental: %w", err)
	}

	s.notify(ctx, rental)
	logger.ExitMethod("rentalService.CreateRental", "rentalID", rental.ID, "totalFee", rental.TotalFee)
	return rental, nil
}

// ApplyTransition moves a rental to the requested status on behalf of actorID.
// Loading, validation, the ledger effect and the status write share one
// transaction holding the rental row lock; the notification is sent only after
// it commits.
func (s *rentalService) ApplyTransition(ctx context.Context, rentalID int64, to domain.RentalStatus, actorID string) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.ApplyTransition", "rentalID", rentalID, "to", to, "actorID", actorID)

	var (
		updated *domain.Rental
		from    domain.RentalStatus
		written []domain.Transaction
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		rt, err := repos.Rentals.GetByIDForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		from = rt.Status

		rule, ok := domain.LookupTransition(rt.Status, to)
		if !ok {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rt.Status, to)
		}
		role := rt.RoleOf(actorID)
		if role == domain.RoleNone {
			return domain.ErrUnauthorized
		}
		if rule.Actor != role {
			return fmt.Errorf("%w: only the %s may move a rental from %s to %s", domain.ErrForbidden, rule.Actor, rt.Status, to)
		}

		entries, err := ledgerEffect(rt, rule.Effect)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			txn, err := repos.Ledger.Apply(ctx, entry)
			if err != nil {
				return err
			}
			written = append(written, *txn)
		}

		if err := repos.Rentals.UpdateStatus(ctx, rt.ID, rt.Status, to); err != nil {
			return err
		}
		updated, err = repos.Rentals.GetByID(ctx, rt.ID)
		return err
	})
	if err != nil {
		s.metrics.ObserveTransition(string(from), string(to), errorLabel(err))
		logger.ExitMethodWithError("rentalService.ApplyTransition", err, "rentalID", rentalID, "from", from, "to", to)
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(to), "ok")
	for _, txn := range written {
		s.metrics.ObserveLedgerEntry(string(txn.Type), txn.Amount)
	}
	s.notify(ctx, updated)

	logger.ExitMethod("rentalService.ApplyTransition", "rentalID", rentalID, "from", from, "to", to)
	return updated, nil
}

// ledgerEffect expands a transition effect into the balance movements it requires.
// A rental whose fee snapshot is not positive never moves money.
func ledgerEffect(rt *domain.Rental, effect domain.Effect) ([]domain.LedgerEntry, error) {
	if effect == domain.EffectNone {
		return nil, nil
	}
	if err := rt.ValidateAmounts(); err != nil {
		return nil, err
	}
	rentalID := rt.ID
	switch effect {
	case domain.EffectCollectPayment:
		return []domain.LedgerEntry{{
			UserID:          rt.BorrowerID,
			Amount:          rt.AmountDue(),
			Debit:           true,
			Type:            domain.TransactionTypePayment,
			Description:     fmt.Sprintf("Rental #%d payment (fee %d + deposit %d)", rt.ID, rt.TotalFee, rt.DepositHeld),
			RelatedRentalID: &rentalID,
		}}, nil
	case domain.EffectSettle:
		entries := []domain.LedgerEntry{{
			UserID:          rt.OwnerID,
			Amount:          rt.TotalFee,
			Type:            domain.TransactionTypeEarning,
			Description:     fmt.Sprintf("Rental #%d earnings", rt.ID),
			RelatedRentalID: &rentalID,
		}}
		if rt.DepositHeld > 0 {
			entries = append([]domain.LedgerEntry{{
				UserID:          rt.BorrowerID,
				Amount:          rt.DepositHeld,
				Type:            domain.TransactionTypeRefund,
				Description:     fmt.Sprintf("Rental #%d deposit refund", rt.ID),
				RelatedRentalID: &rentalID,
			}}, entries...)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unknown ledger effect %d", effect)
	}
}

func (s *rentalService) GetRental(ctx context.Context, actorID string, rentalID int64) (*domain.Rental, error) {
	repos := s.store.Repos()
	rt, err := repos.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rt.IsParty(actorID) {
		return rt, nil
	}
	actor, err := repos.Users.GetByID(ctx, actorID)
	if err != nil || !actor.IsAdmin {
		return nil, domain.ErrUnauthorized
	}
	return rt, nil
}

func (s *rentalService) ListRentals(ctx context.Context, userID string) ([]domain.Rental, error) {
	return s.store.Repos().Rentals.ListByUser(ctx, userID)
}

func (s *rentalService) notify(ctx context.Context, rt *domain.Rental) {
	s.notifier.Notify(ctx, domain.Notification{
		Room:       domain.RoomKeyOf(rt),
		Title:      "Rental update",
		Text:       StatusMessage(rt),
		RentalID:   rt.ID,
		Recipients: []string{rt.BorrowerID, rt.OwnerID},
		CreatedAt:  s.now().UTC(),
	})
}

// StatusMessage is the system chat text announcing that rt reached its current status.
func StatusMessage(rt *domain.Rental) string {
	switch rt.Status {
	case domain.RentalStatusRequested:
		return "Rental requested"
	case domain.RentalStatusAccepted:
		return "Rental request accepted"
	case domain.RentalStatusPaid:
		return fmt.Sprintf("Payment completed: fee %d + deposit %d held", rt.TotalFee, rt.DepositHeld)
	case domain.RentalStatusRenting:
		return "Rental started"
	case domain.RentalStatusReturned:
		return "Item returned"
	case domain.RentalStatusCompleted:
		return "Rental completed. Deposit refunded."
	case domain.RentalStatusCancelled:
		return "Rental request cancelled"
	default:
		return fmt.Sprintf("Rental status changed to %s", rt.Status)
	}
}

// errorLabel maps an error onto a low-cardinality metric label.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrConflictRetry):
		return "conflict"
	default:
		return "error"
	}
}
