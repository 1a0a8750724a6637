package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

type checkoutStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewCheckoutStore creates a CheckoutStore backed by Postgres. A positive
// lockTimeout bounds how long a transaction waits for listing row locks.
func NewCheckoutStore(db *sql.DB, lockTimeout time.Duration) repository.CheckoutStore {
	return &checkoutStore{db: db, lockTimeout: lockTimeout}
}

func (s *checkoutStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", classify(err))
		}
	}

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

type checkoutTx struct {
	tx *sql.Tx
}

func (t *checkoutTx) CartEntries(ctx context.Context, accountID string) ([]entity.CartEntry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+cartEntryColumns+` FROM cart_entries WHERE account_id = $1 ORDER BY created_at, id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", classify(err))
	}
	defer rows.Close()

	var entries []entity.CartEntry
	for rows.Next() {
		e, err := scanCartEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart rows: %w", classify(err))
	}
	return entries, nil
}

// LockListings relies on FOR UPDATE locking rows in the order they are
// returned, so ORDER BY id fixes the global lock order.
func (t *checkoutTx) LockListings(ctx context.Context, ids []string) (map[string]*entity.Listing, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock listings: %w", classify(err))
	}
	defer rows.Close()

	locked := make(map[string]*entity.Listing, len(ids))
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked listing: %w", err)
		}
		locked[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock listings: %w", classify(err))
	}
	return locked, nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *entity.Order) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, account_id, ordered) VALUES ($1, $2, $3) RETURNING created_at`,
		o.ID, o.AccountID, o.Ordered,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", classify(err))
	}

	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO order_lines (id, order_id, listing_id, title, qty, price_snapshot) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare order line insert: %w", classify(err))
	}
	defer stmt.Close()

	for _, line := range o.Lines {
		if _, err := stmt.ExecContext(ctx, line.ID, o.ID, line.ListingID, line.Title, line.Qty, line.PriceSnapshot); err != nil {
			return fmt.Errorf("failed to insert order line: %w", classify(err))
		}
	}
	return nil
}

func (t *checkoutTx) SaveStock(ctx context.Context, l *entity.Listing) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE listings SET quantity = $1, is_available = $2, updated_at = NOW() WHERE id = $3`,
		nullInt(l.Quantity), l.IsAvailable, l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing stock: %w", classify(err))
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, accountID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cart_entries WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", classify(err))
	}
	return nil
}

func (t *checkoutTx) Enqueue(ctx context.Context, topic, key string, event entity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), topic, key, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.EventType(), classify(err))
	}
	return nil
}
