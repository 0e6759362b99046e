package jobs

import (
	"context"
	"fmt"

	"neighbor-storage-backend/internal/logger"
)

// ReconcileLedger compares every wallet balance with its transaction log.
// Mismatches are logged and exported; they are never corrected automatically.
func (jr *JobRunner) ReconcileLedger() error {
	return jr.runWithRecovery(JobReconcileLedger, func(ctx context.Context) error {
		report, err := jr.services.Ledger.Reconcile(ctx)
		if err != nil {
			return err
		}
		if n := len(report.Mismatches); n > 0 {
			logger.ErrorContext(ctx, "Ledger reconciliation found mismatches", "count", n, "checked", report.CheckedUsers)
			return fmt.Errorf("%d of %d wallets disagree with their transaction log", n, report.CheckedUsers)
		}
		return nil
	})
}

// ReportEscrow refreshes the held-money and active-rental gauges.
func (jr *JobRunner) ReportEscrow() error {
	return jr.runWithRecovery(JobReportEscrow, func(ctx context.Context) error {
		stats, err := jr.services.Admin.Stats(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Escrow report",
			"held", stats.TotalHeldMoney,
			"active_rentals", stats.ActiveRentals,
			"users", stats.TotalUsers)
		return nil
	})
}
