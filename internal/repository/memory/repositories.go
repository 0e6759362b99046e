package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
)

type userRepository struct{ h *handle }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.h.run(ctx, func(st *state) error {
		email := strings.ToLower(user.Email)
		if _, taken := st.emails[email]; taken {
			return domain.ErrAlreadyExists
		}
		if _, taken := st.users[user.ID]; taken {
			return domain.ErrAlreadyExists
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = r.h.now()
		}
		u := *user
		st.users[u.ID] = &u
		st.emails[email] = u.ID
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.h.run(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		c := *u
		out = &c
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.h.run(ctx, func(st *state) error {
		id, ok := st.emails[strings.ToLower(email)]
		if !ok {
			return domain.ErrUserNotFound
		}
		c := *st.users[id]
		out = &c
		return nil
	})
	return out, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	return r.h.run(ctx, func(st *state) error {
		u, ok := st.users[user.ID]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.Nickname = user.Nickname
		u.AvatarURL = user.AvatarURL
		u.Bio = user.Bio
		u.Location = user.Location
		return nil
	})
}

func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.h.run(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.IsBanned = banned
		return nil
	})
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.h.run(ctx, func(st *state) error {
		n = int64(len(st.users))
		return nil
	})
	return n, err
}

type itemRepository struct{ h *handle }

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	return r.h.run(ctx, func(st *state) error {
		st.nextItemID++
		item.ID = st.nextItemID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = r.h.now()
		}
		it := *item
		it.Images = append([]string(nil), item.Images...)
		st.items[it.ID] = &it
		return nil
	})
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var out *domain.Item
	err := r.h.run(ctx, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		c := *it
		c.Images = append([]string(nil), it.Images...)
		out = &c
		return nil
	})
	return out, err
}

func (r *itemRepository) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	var out []domain.Item
	err := r.h.run(ctx, func(st *state) error {
		for _, it := range st.items {
			if it.IsDeleted {
				continue
			}
			if filter.OwnerID != "" && it.OwnerID != filter.OwnerID {
				continue
			}
			if filter.Category != "" && it.Category != filter.Category {
				continue
			}
			out = append(out, *it)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r *itemRepository) UpdateTerms(ctx context.Context, id int64, pricePerDay, deposit int64) error {
	return r.h.run(ctx, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		it.PricePerDay = pricePerDay
		it.Deposit = deposit
		return nil
	})
}

func (r *itemRepository) IncrementViewCount(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		it.ViewCount++
		return nil
	})
}

func (r *itemRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.h.run(ctx, func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return domain.ErrItemNotFound
		}
		it.IsDeleted = true
		return nil
	})
}

type rentalRepository struct{ h *handle }

func (r *rentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	return r.h.run(ctx, func(st *state) error {
		st.nextRentalID++
		now := r.h.now()
		rental.ID = st.nextRentalID
		rental.CreatedAt = now
		rental.UpdatedAt = now
		c := *rental
		st.rentals[c.ID] = &c
		return nil
	})
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	var out *domain.Rental
	err := r.h.run(ctx, func(st *state) error {
		rt, ok := st.rentals[id]
		if !ok {
			return domain.ErrRentalNotFound
		}
		c := *rt
		out = &c
		return nil
	})
	return out, err
}

// GetByIDForUpdate is GetByID: inside WithinTx the whole store is already locked.
func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	return r.GetByID(ctx, id)
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RentalStatus) error {
	return r.h.run(ctx, func(st *state) error {
		rt, ok := st.rentals[id]
		if !ok {
			return domain.ErrRentalNotFound
		}
		if rt.Status != from {
			return domain.ErrConflictRetry
		}
		rt.Status = to
		rt.UpdatedAt = r.h.now()
		return nil
	})
}

func (r *rentalRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.h.run(ctx, func(st *state) error {
		for _, rt := range st.rentals {
			if rt.IsParty(userID) {
				out = append(out, *rt)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r *rentalRepository) ListOverdue(ctx context.Context, asOf string) ([]domain.Rental, error) {
	var out []domain.Rental
	err := r.h.run(ctx, func(st *state) error {
		for _, rt := range st.rentals {
			// yyyy-mm-dd compares chronologically as a string.
			if rt.Status == domain.RentalStatusRenting && rt.EndDate < asOf {
				out = append(out, *rt)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].EndDate != out[j].EndDate {
				return out[i].EndDate < out[j].EndDate
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r *rentalRepository) CountByStatus(ctx context.Context, statuses []domain.RentalStatus) (int64, error) {
	var n int64
	err := r.h.run(ctx, func(st *state) error {
		for _, rt := range st.rentals {
			if slices.Contains(statuses, rt.Status) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *rentalRepository) SumHeld(ctx context.Context, statuses []domain.RentalStatus) (int64, error) {
	var sum int64
	err := r.h.run(ctx, func(st *state) error {
		for _, rt := range st.rentals {
			if slices.Contains(statuses, rt.Status) {
				sum += rt.AmountDue()
			}
		}
		return nil
	})
	return sum, err
}

type ledgerRepository struct{ h *handle }

func (r *ledgerRepository) Apply(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Transaction
	err := r.h.run(ctx, func(st *state) error {
		u, ok := st.users[entry.UserID]
		if !ok {
			return domain.ErrUserNotFound
		}
		if entry.Debit && u.Balance < entry.Amount {
			return domain.NewInsufficientFunds(entry.Amount, u.Balance)
		}
		balance, err := entry.ApplyTo(u.Balance)
		if err != nil {
			return err
		}
		u.Balance = balance
		st.nextTxnID++
		txn := domain.Transaction{
			ID:              st.nextTxnID,
			UserID:          entry.UserID,
			Type:            entry.Type,
			Amount:          entry.SignedAmount(),
			Description:     entry.Description,
			RelatedRentalID: entry.RelatedRentalID,
			CreatedAt:       r.h.now(),
		}
		st.txns = append(st.txns, txn)
		out = &txn
		return nil
	})
	return out, err
}

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.h.run(ctx, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		balance = u.Balance
		return nil
	})
	return balance, err
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.h.run(ctx, func(st *state) error {
		for i := len(st.txns) - 1; i >= 0; i-- {
			if st.txns[i].UserID != userID {
				continue
			}
			out = append(out, st.txns[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *ledgerRepository) ListBalanceSums(ctx context.Context) ([]domain.BalanceMismatch, error) {
	var out []domain.BalanceMismatch
	err := r.h.run(ctx, func(st *state) error {
		sums := make(map[string]int64, len(st.users))
		for _, t := range st.txns {
			sums[t.UserID] += t.Amount
		}
		for id, u := range st.users {
			out = append(out, domain.BalanceMismatch{UserID: id, Balance: u.Balance, LedgerSum: sums[id]})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
		return nil
	})
	return out, err
}

type chatRepository struct{ h *handle }

func (r *chatRepository) GetOrCreateRoom(ctx context.Context, key domain.RoomKey) (*domain.ChatRoom, error) {
	var out *domain.ChatRoom
	err := r.h.run(ctx, func(st *state) error {
		for _, room := range st.rooms {
			if room.ItemID == nil || *room.ItemID != key.ItemID {
				continue
			}
			if domain.NewRoomKey(room.User1ID, room.User2ID, key.ItemID) == key {
				c := *room
				out = &c
				return nil
			}
		}
		st.nextRoomID++
		itemID := key.ItemID
		room := &domain.ChatRoom{
			ID:        st.nextRoomID,
			User1ID:   key.UserA,
			User2ID:   key.UserB,
			ItemID:    &itemID,
			CreatedAt: r.h.now(),
		}
		st.rooms[room.ID] = room
		c := *room
		out = &c
		return nil
	})
	return out, err
}

func (r *chatRepository) GetRoom(ctx context.Context, id int64) (*domain.ChatRoom, error) {
	var out *domain.ChatRoom
	err := r.h.run(ctx, func(st *state) error {
		room, ok := st.rooms[id]
		if !ok {
			return domain.ErrRoomNotFound
		}
		c := *room
		out = &c
		return nil
	})
	return out, err
}

func (r *chatRepository) ListRooms(ctx context.Context, userID string) ([]domain.ChatRoom, error) {
	var out []domain.ChatRoom
	err := r.h.run(ctx, func(st *state) error {
		for _, room := range st.rooms {
			if room.HasMember(userID) {
				out = append(out, *room)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return lastActivity(out[i]).After(lastActivity(out[j]))
		})
		return nil
	})
	return out, err
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return r.h.run(ctx, func(st *state) error {
		room, ok := st.rooms[msg.RoomID]
		if !ok {
			return domain.ErrRoomNotFound
		}
		st.nextMessageID++
		msg.ID = st.nextMessageID
		msg.CreatedAt = r.h.now()
		st.messages = append(st.messages, *msg)
		room.LastMessage = msg.Text
		t := msg.CreatedAt
		room.LastMessageTime = &t
		return nil
	})
}

func (r *chatRepository) ListMessages(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := r.h.run(ctx, func(st *state) error {
		for _, m := range st.messages {
			if m.RoomID == roomID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

type reviewRepository struct{ h *handle }

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.h.run(ctx, func(st *state) error {
		for _, existing := range st.reviews {
			if existing.RentalID == review.RentalID && existing.ReviewerID == review.ReviewerID {
				return domain.ErrAlreadyExists
			}
		}
		st.nextReviewID++
		review.ID = st.nextReviewID
		review.CreatedAt = r.h.now()
		st.reviews = append(st.reviews, *review)
		return nil
	})
}

func (r *reviewRepository) ListByItem(ctx context.Context, itemID int64) ([]domain.Review, error) {
	var out []domain.Review
	err := r.h.run(ctx, func(st *state) error {
		for i := len(st.reviews) - 1; i >= 0; i-- {
			if st.reviews[i].ItemID == itemID {
				out = append(out, st.reviews[i])
			}
		}
		return nil
	})
	return out, err
}

func lastActivity(room domain.ChatRoom) time.Time {
	if room.LastMessageTime != nil {
		return *room.LastMessageTime
	}
	return room.CreatedAt
}
