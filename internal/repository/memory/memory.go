// Package memory is an in-process Store used for local development and tests.
// Every transaction takes a store-wide lock, so units of work are fully serialized.
package memory

import (
	"context"
	"sync"
	"time"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type state struct {
	users    map[string]*domain.User
	emails   map[string]string
	items    map[int64]*domain.Item
	rentals  map[int64]*domain.Rental
	txns     []domain.Transaction
	rooms    map[int64]*domain.ChatRoom
	messages []domain.ChatMessage
	reviews  []domain.Review

	nextItemID    int64
	nextRentalID  int64
	nextTxnID     int64
	nextRoomID    int64
	nextMessageID int64
	nextReviewID  int64
}

func newState() *state {
	return &state{
		users:   make(map[string]*domain.User),
		emails:  make(map[string]string),
		items:   make(map[int64]*domain.Item),
		rentals: make(map[int64]*domain.Rental),
		rooms:   make(map[int64]*domain.ChatRoom),
	}
}

func (s *state) clone() *state {
	c := *s
	c.users = make(map[string]*domain.User, len(s.users))
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	c.emails = make(map[string]string, len(s.emails))
	for k, v := range s.emails {
		c.emails[k] = v
	}
	c.items = make(map[int64]*domain.Item, len(s.items))
	for k, v := range s.items {
		it := *v
		it.Images = append([]string(nil), v.Images...)
		c.items[k] = &it
	}
	c.rentals = make(map[int64]*domain.Rental, len(s.rentals))
	for k, v := range s.rentals {
		r := *v
		c.rentals[k] = &r
	}
	c.rooms = make(map[int64]*domain.ChatRoom, len(s.rooms))
	for k, v := range s.rooms {
		r := *v
		c.rooms[k] = &r
	}
	c.txns = append([]domain.Transaction(nil), s.txns...)
	c.messages = append([]domain.ChatMessage(nil), s.messages...)
	c.reviews = append([]domain.Review(nil), s.reviews...)
	return &c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

func (s *Store) Repos() repository.Repositories {
	return s.bind(true)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.bind(false)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) bind(locking bool) repository.Repositories {
	h := &handle{store: s, locking: locking}
	return repository.Repositories{
		Users:   &userRepository{h},
		Items:   &itemRepository{h},
		Rentals: &rentalRepository{h},
		Ledger:  &ledgerRepository{h},
		Chat:    &chatRepository{h},
		Reviews: &reviewRepository{h},
	}
}

// handle runs repository calls against the store state. Repositories handed out
// by WithinTx already hold the store lock and must not take it again.
type handle struct {
	store   *Store
	locking bool
}

func (h *handle) run(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.locking {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
	}
	return fn(h.store.st)
}

func (h *handle) now() time.Time {
	return h.store.now().UTC()
}
