package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"neighbor-storage-backend/internal/cache"
	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/repository"
)

type CreateItemRequest struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	PricePerDay int64    `json:"price_per_day"`
	Deposit     int64    `json:"deposit"`
	CanTeach    bool     `json:"can_teach"`
	CanDeliver  bool     `json:"can_deliver"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
}

type itemService struct {
	store    repository.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewItemService returns the item directory. Active terms are read through c
// and evicted whenever an item's terms or visibility change.
func NewItemService(store repository.Store, c cache.Cache, cacheTTL time.Duration) ItemService {
	return &itemService{store: store, cache: c, cacheTTL: cacheTTL}
}

func termsKey(itemID int64) string {
	return fmt.Sprintf("item:terms:%d", itemID)
}

func (s *itemService) CreateItem(ctx context.Context, ownerID string, req CreateItemRequest) (*domain.Item, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.Invalid("title is required")
	}
	if err := domain.ValidateTerms(req.PricePerDay, req.Deposit); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	owner, err := repos.Users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.IsBanned {
		return nil, fmt.Errorf("%w: %w", domain.ErrForbidden, domain.ErrUserBanned)
	}

	item := &domain.Item{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Category:    req.Category,
		PricePerDay: req.PricePerDay,
		Deposit:     req.Deposit,
		IsProItem:   owner.IsShopOwner,
		CanTeach:    req.CanTeach,
		CanDeliver:  req.CanDeliver,
		Images:      req.Images,
		Description: req.Description,
		Location:    req.Location,
	}
	if err := repos.Items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	logger.Info("Item created", "itemID", item.ID, "ownerID", ownerID)
	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	repos := s.store.Repos()
	item, err := repos.Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, domain.ErrItemNotFound
	}
	if err := repos.Items.IncrementViewCount(ctx, id); err != nil {
		logger.Warn("Failed to increment view count", "itemID", id, "error", err)
	} else {
		item.ViewCount++
	}
	return item, nil
}

func (s *itemService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	return s.store.Repos().Items.List(ctx, filter)
}

func (s *itemService) UpdateItemTerms(ctx context.Context, ownerID string, id int64, pricePerDay, deposit int64) (*domain.Item, error) {
	if err := domain.ValidateTerms(pricePerDay, deposit); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	item, err := repos.Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, domain.ErrItemDeleted
	}
	if item.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: only the owner may change item terms", domain.ErrForbidden)
	}
	if err := repos.Items.UpdateTerms(ctx, id, pricePerDay, deposit); err != nil {
		return nil, fmt.Errorf("failed to update item terms: %w", err)
	}
	s.evict(ctx, id)

	item.PricePerDay = pricePerDay
	item.Deposit = deposit
	return item, nil
}

func (s *itemService) DeleteItem(ctx context.Context, actorID string, id int64) error {
	repos := s.store.Repos()
	item, err := repos.Items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item.OwnerID != actorID {
		actor, err := repos.Users.GetByID(ctx, actorID)
		if err != nil || !actor.IsAdmin {
			return fmt.Errorf("%w: only the owner or an admin may delete an item", domain.ErrForbidden)
		}
	}
	if item.IsDeleted {
		return nil
	}
	if err := repos.Items.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.evict(ctx, id)
	logger.Info("Item deleted", "itemID", id, "actorID", actorID)
	return nil
}

func (s *itemService) GetActiveTerms(ctx context.Context, id int64) (domain.ItemTerms, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, termsKey(id)); err == nil {
			var terms domain.ItemTerms
			if err := json.Unmarshal(data, &terms); err == nil {
				return terms, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("Item terms cache read failed", "itemID", id, "error", err)
		}
	}

	item, err := s.store.Repos().Items.GetByID(ctx, id)
	if err != nil {
		return domain.ItemTerms{}, err
	}
	if item.IsDeleted {
		return domain.ItemTerms{}, domain.ErrItemDeleted
	}
	terms := item.Terms()

	if s.cache != nil {
		if data, err := json.Marshal(terms); err == nil {
			if err := s.cache.Set(ctx, termsKey(id), data, s.cacheTTL); err != nil {
				logger.Warn("Item terms cache write failed", "itemID", id, "error", err)
			}
		}
	}
	return terms, nil
}

func (s *itemService) evict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, termsKey(id)); err != nil {
		logger.Warn("Item terms cache eviction failed", "itemID", id, "error", err)
	}
}
