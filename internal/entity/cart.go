package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartEntry is a pending quantity of a listing held by an account.
// There is at most one entry per (account, listing).
type CartEntry struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ListingID string    `json:"listing_id"`
	Qty       int       `json:"qty"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a cart entry joined with the listing data needed for display.
type CartLine struct {
	CartEntry
	Title    string              `json:"title"`
	Slug     string              `json:"slug"`
	Price    decimal.NullDecimal `json:"price"`
	Quantity *int                `json:"stock"`
}

// Subtotal is price × qty, or zero when the price is missing.
func (l CartLine) Subtotal() decimal.Decimal {
	if !l.Price.Valid {
		return decimal.Zero
	}
	return l.Price.Decimal.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is the account's cart as shown to the user.
type Cart struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// NewCart computes the cart total from its lines.
func NewCart(lines []CartLine) Cart {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	if lines == nil {
		lines = []CartLine{}
	}
	return Cart{Lines: lines, Total: total}
}

// AddResult is returned by a cart add. Clamped is set when the merged
// quantity was reduced to the available stock.
type AddResult struct {
	Entry   CartEntry `json:"entry"`
	Clamped bool      `json:"clamped"`
}
