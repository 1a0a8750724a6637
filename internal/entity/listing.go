package entity

// Tracked reports whether the listing has a stock ceiling.
func (l *Listing) Tracked() bool {
	return l.Quantity != nil
}

// CanSupply reports whether qty units may be taken from current stock.
// Untracked stock always can.
func (l *Listing) CanSupply(qty int) bool {
	if l.Quantity == nil {
		return true
	}
	return qty <= *l.Quantity
}

// Deduct removes qty units from tracked stock, flooring at zero, and marks
// the listing unavailable once nothing is left.
func (l *Listing) Deduct(qty int) {
	if l.Quantity == nil {
		return
	}
	left := *l.Quantity - qty
	if left < 0 {
		left = 0
	}
	l.Quantity = &left
	if left == 0 {
		l.IsAvailable = false
	}
}

// SyncAvailability derives is_available from stock: a listing is buyable
// exactly when its stock is untracked or above zero.
func (l *Listing) SyncAvailability() {
	l.IsAvailable = l.Quantity == nil || *l.Quantity > 0
}
