package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"neighbor-storage-backend/internal/cache"
	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/repository/memory"
)

const (
	welcomeBonus = 100000
	deliveryFee  = 3000
	defaultTopUp = 50000
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type MockNotifier struct {
	mock.Mock
	mu    sync.Mutex
	texts []string
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) {
	m.mu.Lock()
	m.texts = append(m.texts, n.Text)
	m.mu.Unlock()
	m.Called(ctx, n)
}

func (m *MockNotifier) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

type fixture struct {
	store    *memory.Store
	notifier *MockNotifier
	items    ItemService
	rentals  RentalService
	ledger   LedgerService
	admin    AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	items := NewItemService(store, c, time.Minute)
	rentals := NewRentalService(store, items, notifier, nil, deliveryFee)
	rentals.(*rentalService).now = func() time.Time { return fixedNow }
	ledger := NewLedgerService(store, nil, defaultTopUp)
	return &fixture{
		store:    store,
		notifier: notifier,
		items:    items,
		rentals:  rentals,
		ledger:   ledger,
		admin:    NewAdminService(store, items, ledger, nil),
	}
}

// addUser creates an account with the welcome bonus, the way signup does.
func (f *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(repos repository.Repositories) error {
		if err := repos.Users.Create(context.Background(), &domain.User{ID: id, Email: id + "@example.com", Nickname: id}); err != nil {
			return err
		}
		_, err := repos.Ledger.Apply(context.Background(), domain.LedgerEntry{
			UserID: id, Amount: welcomeBonus, Type: domain.TransactionTypeCharge, Description: "Welcome bonus",
		})
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) addItem(t *testing.T, ownerID string, price, deposit int64) *domain.Item {
	t.Helper()
	item, err := f.items.CreateItem(context.Background(), ownerID, CreateItemRequest{
		Title: "Camping tent", Category: "outdoor", PricePerDay: price, Deposit: deposit, CanDeliver: true,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.store.Repos().Ledger.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) addAdmin(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.Repos().Users.Create(context.Background(), &domain.User{ID: id, Email: id + "@example.com", Nickname: id, IsAdmin: true}))
}

type step struct {
	to    domain.RentalStatus
	actor string
}

func (f *fixture) advance(t *testing.T, rentalID int64, steps ...step) {
	t.Helper()
	for _, s := range steps {
		_, err := f.rentals.ApplyTransition(context.Background(), rentalID, s.to, s.actor)
		require.NoError(t, err, "moving to %s", s.to)
	}
}
