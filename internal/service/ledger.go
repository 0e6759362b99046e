package service

import (
	"context"
	"fmt"
	"time"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/repository"
)

// walletHistoryLimit caps the transactions returned with a wallet.
const walletHistoryLimit = 100

type ledgerService struct {
	store        repository.Store
	metrics      *metrics.Metrics
	defaultTopUp int64
	now          func() time.Time
}

func NewLedgerService(store repository.Store, m *metrics.Metrics, defaultTopUp int64) LedgerService {
	return &ledgerService{store: store, metrics: m, defaultTopUp: defaultTopUp, now: time.Now}
}

func (s *ledgerService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.wallet(ctx, s.store.Repos(), userID)
}

func (s *ledgerService) wallet(ctx context.Context, repos repository.Repositories, userID string) (*domain.Wallet, error) {
	balance, err := repos.Ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := repos.Ledger.ListTransactions(ctx, userID, walletHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	return &domain.Wallet{UserID: userID, Balance: balance, Transactions: txns}, nil
}

// TopUp credits the wallet; a zero amount tops up the configured default.
func (s *ledgerService) TopUp(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	if amount == 0 {
		amount = s.defaultTopUp
	}
	if amount < 0 {
		return nil, domain.Invalid("amount must be positive")
	}
	return s.move(ctx, domain.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeCharge,
		Description: "Wallet top-up",
	})
}

func (s *ledgerService) Withdraw(ctx context.Context, userID string, amount int64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.Invalid("amount must be positive")
	}
	return s.move(ctx, domain.LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Debit:       true,
		Type:        domain.TransactionTypeWithdraw,
		Description: "Wallet withdrawal",
	})
}

func (s *ledgerService) move(ctx context.Context, entry domain.LedgerEntry) (*domain.Wallet, error) {
	logger.EnterMethod("ledgerService.move", "userID", entry.UserID, "amount", entry.SignedAmount(), "type", entry.Type)
	var wallet *domain.Wallet
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Ledger.Apply(ctx, entry); err != nil {
			return err
		}
		var err error
		wallet, err = s.wallet(ctx, repos, entry.UserID)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.move", err, "userID", entry.UserID)
		return nil, err
	}
	s.metrics.ObserveLedgerEntry(string(entry.Type), entry.Amount)
	logger.ExitMethod("ledgerService.move", "userID", entry.UserID, "balance", wallet.Balance)
	return wallet, nil
}

// Reconcile compares every stored balance with the sum of its transaction log.
func (s *ledgerService) Reconcile(ctx context.Context) (*domain.ReconciliationReport, error) {
	sums, err := s.store.Repos().Ledger.ListBalanceSums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance sums: %w", err)
	}
	report := &domain.ReconciliationReport{
		CheckedUsers: len(sums),
		Mismatches:   []domain.BalanceMismatch{},
		CheckedAt:    s.now().UTC(),
	}
	for _, sum := range sums {
		if sum.Balance != sum.LedgerSum {
			report.Mismatches = append(report.Mismatches, sum)
			logger.Error("Ledger mismatch", "userID", sum.UserID, "balance", sum.Balance, "ledgerSum", sum.LedgerSum)
		}
	}
	s.metrics.SetReconciliationMismatches(len(report.Mismatches))
	logger.Info("Ledger reconciled", "users", report.CheckedUsers, "mismatches", len(report.Mismatches))
	return report, nil
}
