package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new CartRepository backed by Postgres.
func NewCartRepository(db *sql.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

const cartEntryColumns = `id, account_id, listing_id, qty, created_at`

func scanCartEntry(row scanner) (*entity.CartEntry, error) {
	var e entity.CartEntry
	if err := row.Scan(&e.ID, &e.AccountID, &e.ListingID, &e.Qty, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Lines left-joins listings so a listing with a broken price still shows up
// with a zero subtotal.
func (r *cartRepository) Lines(ctx context.Context, accountID string) ([]entity.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.account_id, c.listing_id, c.qty, c.created_at,
       COALESCE(l.title, ''), COALESCE(l.slug, ''), l.price, l.quantity
FROM cart_entries c
LEFT JOIN listings l ON l.id = c.listing_id
WHERE c.account_id = $1
ORDER BY c.created_at DESC, c.id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	var lines []entity.CartLine
	for rows.Next() {
		var (
			line     entity.CartLine
			quantity sql.NullInt64
		)
		if err := rows.Scan(
			&line.ID, &line.AccountID, &line.ListingID, &line.Qty, &line.CreatedAt,
			&line.Title, &line.Slug, &line.Price, &quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		line.Quantity = intFromNull(quantity)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart rows: %w", err)
	}
	return lines, nil
}

func (r *cartRepository) FindByListing(ctx context.Context, accountID, listingID string) (*entity.CartEntry, error) {
	e, err := scanCartEntry(r.db.QueryRowContext(ctx,
		`SELECT `+cartEntryColumns+` FROM cart_entries WHERE account_id = $1 AND listing_id = $2`,
		accountID, listingID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *cartRepository) FindByID(ctx context.Context, accountID, entryID string) (*entity.CartEntry, error) {
	e, err := scanCartEntry(r.db.QueryRowContext(ctx,
		`SELECT `+cartEntryColumns+` FROM cart_entries WHERE id = $1 AND account_id = $2`,
		entryID, accountID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *cartRepository) Insert(ctx context.Context, e *entity.CartEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_entries (id, account_id, listing_id, qty) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		e.ID, e.AccountID, e.ListingID, e.Qty,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cart entry: %w", classify(err))
	}
	return nil
}

func (r *cartRepository) UpdateQty(ctx context.Context, entryID string, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cart_entries SET qty = $1 WHERE id = $2`, qty, entryID)
	if err != nil {
		return fmt.Errorf("failed to update cart entry: %w", err)
	}
	return requireAffected(res)
}

func (r *cartRepository) Delete(ctx context.Context, accountID, entryID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_entries WHERE id = $1 AND account_id = $2`, entryID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete cart entry: %w", err)
	}
	return requireAffected(res)
}

func (r *cartRepository) Count(ctx context.Context, accountID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_entries WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cart entries: %w", err)
	}
	return n, nil
}
