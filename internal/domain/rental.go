package domain

import (
	"fmt"
	"time"
)

type RentalStatus string

const (
	RentalStatusRequested RentalStatus = "requested"
	RentalStatusAccepted  RentalStatus = "accepted"
	RentalStatusPaid      RentalStatus = "paid"
	RentalStatusRenting   RentalStatus = "renting"
	RentalStatusReturned  RentalStatus = "returned"
	RentalStatusCompleted RentalStatus = "completed"
	RentalStatusCancelled RentalStatus = "cancelled"
)

// AllRentalStatuses lists every status in lifecycle order.
var AllRentalStatuses = []RentalStatus{
	RentalStatusRequested,
	RentalStatusAccepted,
	RentalStatusPaid,
	RentalStatusRenting,
	RentalStatusReturned,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

func ParseRentalStatus(s string) (RentalStatus, error) {
	for _, st := range AllRentalStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Invalid(fmt.Sprintf("unknown rental status %q", s))
}

func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

// MaxRentalDays is the longest rental that can be requested.
const MaxRentalDays = 365

// DateLayout is the wire format of rental start and end dates.
const DateLayout = "2006-01-02"

type Rental struct {
	ID         int64        `json:"id"`
	ItemID     int64        `json:"item_id"`
	BorrowerID string       `json:"borrower_id"`
	OwnerID    string       `json:"owner_id"`
	Status     RentalStatus `json:"status"`
	StartDate  string       `json:"start_date"`
	EndDate    string       `json:"end_date"`
	// Snapshot of the item terms at creation; never recomputed.
	TotalFee    int64     `json:"total_fee"`
	DepositHeld int64     `json:"deposit_held"`
	IsDelivery  bool      `json:"is_delivery"`
	DeliveryFee int64     `json:"delivery_fee"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AmountDue is what the borrower pays on accepted -> paid.
func (r *Rental) AmountDue() int64 {
	return r.TotalFee + r.DepositHeld
}

// ValidateAmounts checks the fee snapshot before any money moves on it.
func (r *Rental) ValidateAmounts() error {
	if r.TotalFee <= 0 {
		return fmt.Errorf("rental %d: total fee %d is not positive", r.ID, r.TotalFee)
	}
	if _, err := addAmounts(r.TotalFee, r.DepositHeld); err != nil {
		return fmt.Errorf("rental %d: %w", r.ID, err)
	}
	return nil
}

// RoleOf returns the actor's role in the rental, or RoleNone for a stranger.
func (r *Rental) RoleOf(actorID string) Role {
	switch actorID {
	case r.OwnerID:
		return RoleOwner
	case r.BorrowerID:
		return RoleBorrower
	default:
		return RoleNone
	}
}

// IsParty reports whether the user is the borrower or the owner.
func (r *Rental) IsParty(userID string) bool {
	return r.RoleOf(userID) != RoleNone
}

// RentalQuote is the fee snapshot computed from item terms at creation time.
type RentalQuote struct {
	Days        int
	TotalFee    int64
	DepositHeld int64
	DeliveryFee int64
	StartDate   string
	EndDate     string
}

func (q RentalQuote) Required() int64 {
	return q.TotalFee + q.DepositHeld
}

// Quote computes the fee snapshot for a rental of the given length starting on day.
func Quote(terms ItemTerms, days int, isDelivery bool, deliveryFee int64, day time.Time) (RentalQuote, error) {
	if days < 1 || days > MaxRentalDays {
		return RentalQuote{}, Invalid(fmt.Sprintf("days must be between 1 and %d", MaxRentalDays))
	}
	if err := ValidateTerms(terms.PricePerDay, terms.Deposit); err != nil {
		return RentalQuote{}, err
	}
	if !isDelivery {
		deliveryFee = 0
	}
	if terms.PricePerDay > MaxAmount/int64(days) {
		return RentalQuote{}, Invalid(fmt.Sprintf("rental fee exceeds %d", MaxAmount))
	}
	totalFee, err := addAmounts(terms.PricePerDay*int64(days), deliveryFee)
	if err != nil {
		return RentalQuote{}, err
	}
	if _, err := addAmounts(totalFee, terms.Deposit); err != nil {
		return RentalQuote{}, err
	}
	start := day.UTC()
	return RentalQuote{
		Days:        days,
		TotalFee:    totalFee,
		DepositHeld: terms.Deposit,
		DeliveryFee: deliveryFee,
		StartDate:   start.Format(DateLayout),
		EndDate:     start.AddDate(0, 0, days).Format(DateLayout),
	}, nil
}
