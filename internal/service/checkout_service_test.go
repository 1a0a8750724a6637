package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
)

func TestCheckoutEmptyCart(t *testing.T) {
	h := newHarness()

	order, err := h.checkout.Checkout(context.Background(), "buyer")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, entity.ErrEmptyCart)
	assert.Empty(t, h.store.orders)
	assert.Equal(t, []string{OutcomeEmptyCart}, h.recorder.all())
}

func TestCheckoutPlacesOrder(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(5)))
	book := lamp(nil)
	book.ID, book.Title, book.Price = "book", "Old Book", decimal.RequireFromString("3.20")
	h.store.putListing(book)
	h.store.addToCart("e1", "buyer", "lamp", 3)
	h.store.addToCart("e2", "buyer", "book", 2)

	order, err := h.checkout.Checkout(context.Background(), "buyer")
	require.NoError(t, err)
	assert.True(t, order.Ordered)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "43.9", order.Total().String())

	assert.Equal(t, 2, *h.store.listing("lamp").Quantity)
	assert.True(t, h.store.listing("lamp").IsAvailable)
	assert.Nil(t, h.store.listing("book").Quantity)
	assert.Zero(t, h.store.cartSize("buyer"))

	require.Len(t, h.store.outbox, 1)
	rec := h.store.outbox[0]
	assert.Equal(t, entity.TopicOrdersPlaced, rec.Topic)
	assert.Equal(t, order.ID, rec.Key)
	var event entity.OrderPlaced
	require.NoError(t, json.Unmarshal(rec.Payload, &event))
	assert.Equal(t, "buyer", event.AccountID)
	assert.True(t, event.Total.Equal(order.Total()))
}

func TestCheckoutDeductsToZero(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(2)))
	h.store.addToCart("e1", "buyer", "lamp", 2)

	_, err := h.checkout.Checkout(context.Background(), "buyer")
	require.NoError(t, err)

	l := h.store.listing("lamp")
	assert.Equal(t, 0, *l.Quantity)
	assert.False(t, l.IsAvailable)
}

func TestCheckoutStockUnavailableChangesNothing(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(5)))
	short := lamp(intp(1))
	short.ID, short.Title = "vase", "Vase"
	h.store.putListing(short)
	h.store.addToCart("e1", "buyer", "lamp", 2)
	h.store.addToCart("e2", "buyer", "vase", 2)

	_, err := h.checkout.Checkout(context.Background(), "buyer")
	require.ErrorIs(t, err, entity.ErrStockUnavailable)

	var stockErr *entity.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "vase", stockErr.ListingID)
	assert.Equal(t, 1, *stockErr.Available)

	assert.Equal(t, 5, *h.store.listing("lamp").Quantity)
	assert.Equal(t, 2, h.store.cartSize("buyer"))
	assert.Empty(t, h.store.orders)
	assert.Empty(t, h.store.outbox)
	assert.Equal(t, []string{OutcomeStockUnavailable}, h.recorder.all())
}

func TestCheckoutUnavailableListing(t *testing.T) {
	h := newHarness()
	l := lamp(nil)
	l.IsAvailable = false
	h.store.putListing(l)
	h.store.addToCart("e1", "buyer", "lamp", 1)

	_, err := h.checkout.Checkout(context.Background(), "buyer")
	var stockErr *entity.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Nil(t, stockErr.Available)
	assert.Contains(t, err.Error(), "Desk Lamp is not available")
}

func TestCheckoutMissingListing(t *testing.T) {
	h := newHarness()
	h.store.addToCart("e1", "buyer", "ghost", 1)

	_, err := h.checkout.Checkout(context.Background(), "buyer")
	assert.ErrorIs(t, err, entity.ErrStockUnavailable)
	assert.Equal(t, 1, h.store.cartSize("buyer"))
}

// memCheckout serializes whole transactions on one mutex, so this covers the
// stock arithmetic and all-or-nothing commit only. Row locking in Postgres is
// asserted at the query level in TestRunInTxCommitsOnSuccess.
func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(5)))
	h.store.addToCart("e1", "alice", "lamp", 3)
	h.store.addToCart("e2", "bob", "lamp", 3)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, account := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, account string) {
			defer wg.Done()
			_, errs[i] = h.checkout.Checkout(context.Background(), account)
		}(i, account)
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, entity.ErrStockUnavailable):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, *h.store.listing("lamp").Quantity)
	assert.Len(t, h.store.orders, 1)
}

func TestCheckoutRetriesConflicts(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(5)))
	h.store.addToCart("e1", "buyer", "lamp", 1)
	h.store.conflicts = 2

	order, err := h.checkout.Checkout(context.Background(), "buyer")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 3, h.store.txCalls)
	assert.Equal(t, []string{OutcomeSuccess}, h.recorder.all())
}

func TestCheckoutGivesUpAfterMaxRetries(t *testing.T) {
	h := newHarness(WithRetries(1, 0))
	h.store.putListing(lamp(intp(5)))
	h.store.addToCart("e1", "buyer", "lamp", 1)
	h.store.conflicts = 5

	_, err := h.checkout.Checkout(context.Background(), "buyer")
	assert.ErrorIs(t, err, entity.ErrRetryable)
	assert.Equal(t, 2, h.store.txCalls)
	assert.Equal(t, 1, h.store.cartSize("buyer"))
	assert.Equal(t, []string{OutcomeRetryExhausted}, h.recorder.all())
}

func TestOrderSnapshotsSurviveListingChanges(t *testing.T) {
	h := newHarness()
	h.store.putListing(lamp(intp(5)))
	h.store.addToCart("e1", "buyer", "lamp", 2)

	placed, err := h.checkout.Checkout(context.Background(), "buyer")
	require.NoError(t, err)

	listings := memListings{h.store}
	l, err := listings.FindByID(context.Background(), "lamp")
	require.NoError(t, err)
	l.Title, l.Price = "Renamed Lamp", decimal.RequireFromString("99")
	require.NoError(t, listings.Update(context.Background(), l, nil))
	require.NoError(t, listings.Delete(context.Background(), "lamp"))

	got, err := h.orders.Get(context.Background(), "buyer", placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Desk Lamp", got.Lines[0].Title)
	assert.Equal(t, "25", got.Total().String())
}
