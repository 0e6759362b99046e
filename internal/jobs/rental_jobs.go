package jobs

import (
	"context"
	"fmt"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
)

// SendOverdueReminders posts a reminder to every renting rental past its end date.
// The rental status is left unchanged.
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery(JobOverdueReminders, func(ctx context.Context) error {
		today := jr.now().UTC().Format(domain.DateLayout)
		rentals, err := jr.store.Repos().Rentals.ListOverdue(ctx, today)
		if err != nil {
			return fmt.Errorf("failed to list overdue rentals: %w", err)
		}

		for i := range rentals {
			rt := &rentals[i]
			jr.notifier.Notify(ctx, domain.Notification{
				Room:       domain.RoomKeyOf(rt),
				Title:      "Return reminder",
				Text:       fmt.Sprintf("Return date %s has passed. Please return the item.", rt.EndDate),
				RentalID:   rt.ID,
				Recipients: []string{rt.BorrowerID, rt.OwnerID},
				CreatedAt:  jr.now().UTC(),
			})
			logger.DebugContext(ctx, "Overdue reminder sent",
				"rental_id", rt.ID,
				"borrower_id", rt.BorrowerID,
				"end_date", rt.EndDate)
		}

		logger.InfoContext(ctx, "Sent overdue reminders", "count", len(rentals))
		return nil
	})
}
