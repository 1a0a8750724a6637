package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnauthorized      = errors.New("not allowed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	ErrInsufficientStock = errors.New("requested quantity not available")
	ErrStockUnavailable  = errors.New("stock unavailable")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrRetryable         = errors.New("temporary conflict, try again")
)

// StockError reports the listing that failed checkout validation.
// It matches ErrStockUnavailable with errors.Is.
type StockError struct {
	ListingID string
	Title     string
	// Available is nil when the listing is gone or its stock is untracked.
	Available *int
}

func (e *StockError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("listing %s no longer exists", e.ListingID)
	}
	if e.Available == nil {
		return fmt.Sprintf("%s is not available", e.Title)
	}
	return fmt.Sprintf("not enough stock for %s (available: %d)", e.Title, *e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrStockUnavailable
}

// ValidationError carries user-facing field messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
