package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRentalNotFound    = fmt.Errorf("rental %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("item %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrRoomNotFound      = fmt.Errorf("chat room %w", ErrNotFound)
	ErrItemDeleted       = errors.New("item has been deleted")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflictRetry     = errors.New("concurrent update, retry")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUserBanned        = errors.New("account is banned")
)

// InsufficientFundsError names the amount needed and the balance seen so the
// caller can offer a top-up of the difference.
type InsufficientFundsError struct {
	Required int64
	Current  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, current %d", e.Required, e.Current)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

func NewInsufficientFunds(required, current int64) error {
	return &InsufficientFundsError{Required: required, Current: current}
}

// Invalid wraps ErrInvalidArgument with a field-level message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}
