package service

import (
	"context"
	"fmt"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/repository"
)

type adminService struct {
	store   repository.Store
	items   ItemService
	ledger  LedgerService
	metrics *metrics.Metrics
}

func NewAdminService(store repository.Store, items ItemService, ledger LedgerService, m *metrics.Metrics) AdminService {
	return &adminService{store: store, items: items, ledger: ledger, metrics: m}
}

func (s *adminService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	repos := s.store.Repos()
	users, err := repos.Users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	active, err := repos.Rentals.CountByStatus(ctx, domain.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to count active rentals: %w", err)
	}
	held, err := repos.Rentals.SumHeld(ctx, domain.HeldStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to sum held money: %w", err)
	}
	s.metrics.SetEscrow(held, active)
	return &domain.AdminStats{TotalUsers: users, ActiveRentals: active, TotalHeldMoney: held}, nil
}

func (s *adminService) SetBanned(ctx context.Context, adminID, userID string, banned bool) error {
	if adminID == userID {
		return domain.Invalid("admins cannot ban themselves")
	}
	if err := s.store.Repos().Users.SetBanned(ctx, userID, banned); err != nil {
		return err
	}
	logger.Info("User ban status changed", "adminID", adminID, "userID", userID, "banned", banned)
	return nil
}

func (s *adminService) DeleteItem(ctx context.Context, adminID string, itemID int64) error {
	return s.items.DeleteItem(ctx, adminID, itemID)
}

func (s *adminService) Reconcile(ctx context.Context) (*domain.ReconciliationReport, error) {
	return s.ledger.Reconcile(ctx)
}
