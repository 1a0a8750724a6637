package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a completed purchase. Orders are only ever created in the
// completed state.
type Order struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	Ordered   bool        `json:"ordered"`
	Lines     []OrderLine `json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderLine is a point-in-time copy of a listing at purchase.
type OrderLine struct {
	ID            string              `json:"id"`
	OrderID       string              `json:"order_id"`
	ListingID     string              `json:"listing_id"`
	Title         string              `json:"title"`
	Qty           int                 `json:"qty"`
	PriceSnapshot decimal.NullDecimal `json:"price_snapshot"`
}

// Total is the sum of price_snapshot × qty; a null snapshot counts as zero.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		if !line.PriceSnapshot.Valid {
			continue
		}
		total = total.Add(line.PriceSnapshot.Decimal.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return total
}

// OrderView is the JSON shape of an order including its computed total.
type OrderView struct {
	*Order
	Total decimal.Decimal `json:"total"`
}

func (o *Order) View() OrderView {
	return OrderView{Order: o, Total: o.Total()}
}
