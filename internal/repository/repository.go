package repository

import (
	"context"

	"neighbor-storage-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	SetBanned(ctx context.Context, id string, banned bool) error
	Count(ctx context.Context) (int64, error)
}

// ItemFilter narrows ListItems; zero values match everything.
type ItemFilter struct {
	OwnerID  string
	Category string
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	// GetByID returns soft-deleted items too; callers decide how to treat them.
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context, filter ItemFilter) ([]domain.Item, error)
	UpdateTerms(ctx context.Context, id int64, pricePerDay, deposit int64) error
	IncrementViewCount(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)
	// GetByIDForUpdate locks the rental row until the enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error)
	// UpdateStatus moves the rental from one status to another and fails with
	// domain.ErrConflictRetry when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.RentalStatus) error
	ListByUser(ctx context.Context, userID string) ([]domain.Rental, error)
	// ListOverdue returns renting rentals whose end date is before asOf (yyyy-mm-dd).
	ListOverdue(ctx context.Context, asOf string) ([]domain.Rental, error)
	CountByStatus(ctx context.Context, statuses []domain.RentalStatus) (int64, error)
	SumHeld(ctx context.Context, statuses []domain.RentalStatus) (int64, error)
}

type LedgerRepository interface {
	// Apply moves the user's balance and appends the matching transaction.
	// A debit larger than the balance fails with *domain.InsufficientFundsError
	// and changes nothing. Callers run it inside a transaction.
	Apply(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
	// ListBalanceSums returns, per user, the stored balance and the sum of the transaction log.
	ListBalanceSums(ctx context.Context) ([]domain.BalanceMismatch, error)
}

type ChatRepository interface {
	GetOrCreateRoom(ctx context.Context, key domain.RoomKey) (*domain.ChatRoom, error)
	GetRoom(ctx context.Context, id int64) (*domain.ChatRoom, error)
	ListRooms(ctx context.Context, userID string) ([]domain.ChatRoom, error)
	// AddMessage appends the message and updates the room's last message.
	AddMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListMessages(ctx context.Context, roomID int64) ([]domain.ChatMessage, error)
}

type ReviewRepository interface {
	// Create fails with domain.ErrAlreadyExists when the reviewer already reviewed the rental.
	Create(ctx context.Context, review *domain.Review) error
	ListByItem(ctx context.Context, itemID int64) ([]domain.Review, error)
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Users   UserRepository
	Items   ItemRepository
	Rentals RentalRepository
	Ledger  LedgerRepository
	Chat    ChatRepository
	Reviews ReviewRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
	Ping(ctx context.Context) error
}
