package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

// CartService manages the pending quantities an account intends to buy.
type CartService struct {
	carts    repository.CartRepository
	listings repository.ListingRepository
}

func NewCartService(carts repository.CartRepository, listings repository.ListingRepository) *CartService {
	return &CartService{
		carts:    carts,
		listings: listings,
	}
}

// Add puts qty units of a listing in the account's cart. A first add that
// exceeds tracked stock is rejected; adding onto an existing entry clamps the
// merged quantity to stock and reports Clamped.
func (s *CartService) Add(ctx context.Context, accountID, listingID string, qty int) (*entity.AddResult, error) {
	slog.Info("Service: Adding item to cart", "account_id", accountID, "listing_id", listingID, "qty", qty)

	if qty < 1 {
		return nil, entity.ErrInvalidQuantity
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}

	existing, err := s.carts.FindByListing(ctx, accountID, listingID)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		res, err := s.insert(ctx, accountID, listing, qty)
		if !errors.Is(err, repository.ErrDuplicate) {
			return res, err
		}
		// Lost a race with a concurrent first add; merge into the winner.
		existing, err = s.carts.FindByListing(ctx, accountID, listingID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload cart entry: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load cart entry: %w", err)
	}

	return s.merge(ctx, existing, listing, qty)
}

func (s *CartService) insert(ctx context.Context, accountID string, listing *entity.Listing, qty int) (*entity.AddResult, error) {
	if !listing.CanSupply(qty) {
		return nil, entity.ErrInsufficientStock
	}
	entry := &entity.CartEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ListingID: listing.ID,
		Qty:       qty,
	}
	if err := s.carts.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert cart entry: %w", err)
	}
	return &entity.AddResult{Entry: *entry}, nil
}

func (s *CartService) merge(ctx context.Context, entry *entity.CartEntry, listing *entity.Listing, qty int) (*entity.AddResult, error) {
	res := &entity.AddResult{Entry: *entry}
	newQty := entry.Qty + qty
	if !listing.CanSupply(newQty) {
		newQty = *listing.Quantity
		res.Clamped = true
		if newQty < 1 {
			return nil, entity.ErrInsufficientStock
		}
	}

	if err := s.carts.UpdateQty(ctx, entry.ID, newQty); err != nil {
		return nil, fmt.Errorf("failed to update cart entry: %w", err)
	}
	res.Entry.Qty = newQty
	if res.Clamped {
		slog.Info("Cart quantity clamped to stock", "entry_id", entry.ID, "qty", newQty)
	}
	return res, nil
}

// Update sets an entry to exactly newQty. Unlike Add it never clamps.
func (s *CartService) Update(ctx context.Context, accountID, entryID string, newQty int) (*entity.CartEntry, error) {
	entry, err := s.carts.FindByID(ctx, accountID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart entry %s: %w", entryID, err)
	}
	if newQty < 1 {
		return nil, entity.ErrInvalidQuantity
	}

	listing, err := s.listings.FindByID(ctx, entry.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %w", entry.ListingID, err)
	}
	if !listing.CanSupply(newQty) {
		return nil, entity.ErrInsufficientStock
	}

	if err := s.carts.UpdateQty(ctx, entry.ID, newQty); err != nil {
		return nil, fmt.Errorf("failed to update cart entry: %w", err)
	}
	entry.Qty = newQty
	return entry, nil
}

func (s *CartService) Remove(ctx context.Context, accountID, entryID string) error {
	if err := s.carts.Delete(ctx, accountID, entryID); err != nil {
		return fmt.Errorf("failed to remove cart entry %s: %w", entryID, err)
	}
	return nil
}

// List returns the cart newest first with subtotals and total.
func (s *CartService) List(ctx context.Context, accountID string) (entity.Cart, error) {
	lines, err := s.carts.Lines(ctx, accountID)
	if err != nil {
		return entity.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}
	return entity.NewCart(lines), nil
}

func (s *CartService) Count(ctx context.Context, accountID string) (int, error) {
	return s.carts.Count(ctx, accountID)
}
