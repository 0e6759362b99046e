package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxAmount bounds any single money amount, in minor units.
const MaxAmount int64 = 1_000_000_000_000

type TransactionType string

const (
	TransactionTypeCharge   TransactionType = "CHARGE"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypePayment  TransactionType = "PAYMENT"
	TransactionTypeRefund   TransactionType = "REFUND"
	TransactionTypeEarning  TransactionType = "EARNING"
)

type Transaction struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	Type            TransactionType `json:"type"`
	Amount          int64           `json:"amount"` // positive for credit, negative for debit
	Description     string          `json:"description"`
	RelatedRentalID *int64          `json:"related_rental_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LedgerEntry is a requested balance movement. Amount is always positive;
// Debit selects the sign of the recorded transaction.
type LedgerEntry struct {
	UserID          string
	Amount          int64
	Debit           bool
	Type            TransactionType
	Description     string
	RelatedRentalID *int64
}

// SignedAmount is the value appended to the transaction log.
func (e LedgerEntry) SignedAmount() int64 {
	if e.Debit {
		return -e.Amount
	}
	return e.Amount
}

func (e LedgerEntry) Validate() error {
	if e.UserID == "" {
		return Invalid("ledger entry requires a user")
	}
	if e.Amount <= 0 {
		return Invalid("ledger amount must be positive")
	}
	if e.Amount > MaxAmount {
		return Invalid(fmt.Sprintf("ledger amount must not exceed %d", MaxAmount))
	}
	return nil
}

// ApplyTo returns balance after the entry, failing if the result leaves int64.
func (e LedgerEntry) ApplyTo(balance int64) (int64, error) {
	if !e.Debit && balance > math.MaxInt64-e.Amount {
		return 0, Invalid("balance would overflow")
	}
	return balance + e.SignedAmount(), nil
}

// addAmounts sums money amounts, rejecting negatives and results above MaxAmount.
func addAmounts(amounts ...int64) (int64, error) {
	var total int64
	for _, a := range amounts {
		if a < 0 || a > MaxAmount-total {
			return 0, Invalid(fmt.Sprintf("amount exceeds %d", MaxAmount))
		}
		total += a
	}
	return total, nil
}

type Wallet struct {
	UserID       string        `json:"user_id"`
	Balance      int64         `json:"balance"`
	Transactions []Transaction `json:"transactions"`
}

// BalanceMismatch reports a user whose stored balance disagrees with the
// sum of their transaction log.
type BalanceMismatch struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	LedgerSum int64  `json:"ledger_sum"`
}

type ReconciliationReport struct {
	CheckedUsers int               `json:"checked_users"`
	Mismatches   []BalanceMismatch `json:"mismatches"`
	CheckedAt    time.Time         `json:"checked_at"`
}
