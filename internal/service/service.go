package service

import (
	"context"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
}

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID string, req CreateItemRequest) (*domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	ListItems(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error)
	UpdateItemTerms(ctx context.Context, ownerID string, id int64, pricePerDay, deposit int64) (*domain.Item, error)
	DeleteItem(ctx context.Context, actorID string, id int64) error
	// GetActiveTerms returns the current price snapshot of a live item.
	GetActiveTerms(ctx context.Context, id int64) (domain.ItemTerms, error)
}

type RentalService interface {
	CreateRental(ctx context.Context, borrowerID string, itemID int64, days int, isDelivery bool) (*domain.Rental, error)
	ApplyTransition(ctx context.Context, rentalID int64, to domain.RentalStatus, actorID string) (*domain.Rental, error)
	GetRental(ctx context.Context, actorID string, rentalID int64) (*domain.Rental, error)
	ListRentals(ctx context.Context, userID string) ([]domain.Rental, error)
}

type LedgerService interface {
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	TopUp(ctx context.Context, userID string, amount int64) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID string, amount int64) (*domain.Wallet, error)
	Reconcile(ctx context.Context) (*domain.ReconciliationReport, error)
}

type ChatService interface {
	OpenRoom(ctx context.Context, actorID, otherUserID string, itemID int64) (*domain.ChatRoom, error)
	ListRooms(ctx context.Context, actorID string) ([]domain.ChatRoom, error)
	ListMessages(ctx context.Context, actorID string, roomID int64) ([]domain.ChatMessage, error)
	SendMessage(ctx context.Context, actorID string, roomID int64, text string) (*domain.ChatMessage, error)
}

type ReviewService interface {
	CreateReview(ctx context.Context, reviewerID string, rentalID int64, score int, comment string) (*domain.Review, error)
	ListItemReviews(ctx context.Context, itemID int64) ([]domain.Review, error)
}

type AdminService interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
	SetBanned(ctx context.Context, adminID, userID string, banned bool) error
	DeleteItem(ctx context.Context, adminID string, itemID int64) error
	Reconcile(ctx context.Context) (*domain.ReconciliationReport, error)
}

// Notifier accepts system notifications after a state change has committed.
// Implementations must not block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.Notification) {}
