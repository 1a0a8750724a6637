package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

// Checkout outcomes reported to the CheckoutRecorder.
const (
	OutcomeSuccess          = "success"
	OutcomeEmptyCart        = "empty_cart"
	OutcomeStockUnavailable = "stock_unavailable"
	OutcomeRetryExhausted   = "retry_exhausted"
	OutcomeError            = "error"
)

// CheckoutRecorder observes checkout outcomes.
type CheckoutRecorder interface {
	ObserveCheckout(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCheckout(string) {}

// CheckoutService turns an account's cart into a completed order.
type CheckoutService struct {
	store      repository.CheckoutStore
	recorder   CheckoutRecorder
	maxRetries int
	backoff    time.Duration
}

type CheckoutOption func(*CheckoutService)

// WithRetries sets how many times a conflicting checkout is retried and the
// base delay between attempts. The n-th retry waits n*backoff.
func WithRetries(maxRetries int, backoff time.Duration) CheckoutOption {
	return func(s *CheckoutService) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		s.backoff = backoff
	}
}

func WithRecorder(r CheckoutRecorder) CheckoutOption {
	return func(s *CheckoutService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewCheckoutService(store repository.CheckoutStore, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		store:      store,
		recorder:   nopRecorder{},
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the whole cart into one order. Either every line is
// ordered and its stock deducted, or nothing changes.
func (s *CheckoutService) Checkout(ctx context.Context, accountID string) (*entity.Order, error) {
	slog.Info("Service: Checking out", "account_id", accountID)

	for attempt := 0; ; attempt++ {
		order, err := s.attempt(ctx, accountID)
		if err == nil {
			s.recorder.ObserveCheckout(OutcomeSuccess)
			slog.Info("Order placed", "order_id", order.ID, "account_id", accountID, "lines", len(order.Lines))
			return order, nil
		}

		if !errors.Is(err, entity.ErrRetryable) {
			s.recorder.ObserveCheckout(outcomeOf(err))
			return nil, err
		}
		if attempt >= s.maxRetries {
			s.recorder.ObserveCheckout(OutcomeRetryExhausted)
			slog.Warn("Checkout gave up after lock conflicts", "account_id", accountID, "attempts", attempt+1, "err", err)
			return nil, err
		}

		slog.Warn("Checkout conflict, retrying", "account_id", accountID, "attempt", attempt+1, "err", err)
		select {
		case <-time.After(time.Duration(attempt+1) * s.backoff):
		case <-ctx.Done():
			s.recorder.ObserveCheckout(OutcomeError)
			return nil, ctx.Err()
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, entity.ErrEmptyCart):
		return OutcomeEmptyCart
	case errors.Is(err, entity.ErrStockUnavailable):
		return OutcomeStockUnavailable
	default:
		return OutcomeError
	}
}

func (s *CheckoutService) attempt(ctx context.Context, accountID string) (*entity.Order, error) {
	var order *entity.Order
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.CheckoutTx) error {
		entries, err := tx.CartEntries(ctx, accountID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return entity.ErrEmptyCart
		}

		need := make(map[string]int, len(entries))
		for _, e := range entries {
			need[e.ListingID] += e.Qty
		}
		ids := make([]string, 0, len(need))
		for id := range need {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		locked, err := tx.LockListings(ctx, ids)
		if err != nil {
			return err
		}

		// Validate everything before the first write.
		for _, id := range ids {
			if err := checkStock(id, locked[id], need[id]); err != nil {
				return err
			}
		}

		o := &entity.Order{ID: uuid.NewString(), AccountID: accountID, Ordered: true}
		for _, e := range entries {
			l := locked[e.ListingID]
			o.Lines = append(o.Lines, entity.OrderLine{
				ID:            uuid.NewString(),
				OrderID:       o.ID,
				ListingID:     l.ID,
				Title:         l.Title,
				Qty:           e.Qty,
				PriceSnapshot: decimal.NewNullDecimal(l.Price),
			})
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		for _, id := range ids {
			l := locked[id]
			if !l.Tracked() {
				continue
			}
			l.Deduct(need[id])
			if err := tx.SaveStock(ctx, l); err != nil {
				return err
			}
		}

		if err := tx.ClearCart(ctx, accountID); err != nil {
			return err
		}

		event := entity.OrderPlaced{
			OrderID:   o.ID,
			AccountID: accountID,
			Lines:     o.Lines,
			Total:     o.Total(),
			PlacedAt:  o.CreatedAt,
		}
		if err := tx.Enqueue(ctx, entity.TopicOrdersPlaced, o.ID, event); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}
	return order, nil
}

func checkStock(id string, l *entity.Listing, qty int) error {
	if l == nil {
		return &entity.StockError{ListingID: id}
	}
	if !l.IsAvailable {
		return &entity.StockError{ListingID: id, Title: l.Title}
	}
	if !l.CanSupply(qty) {
		available := *l.Quantity
		return &entity.StockError{ListingID: id, Title: l.Title, Available: &available}
	}
	return nil
}
