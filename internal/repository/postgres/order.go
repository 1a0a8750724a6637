package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]entity.Order, error) {
	q := `SELECT id, account_id, ordered, created_at FROM orders WHERE account_id = $1 AND ordered = TRUE ORDER BY created_at DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Ordered, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, err := loadOrderLines(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *orderRepository) FindByID(ctx context.Context, accountID, orderID string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, ordered, created_at FROM orders WHERE id = $1 AND account_id = $2`,
		orderID, accountID,
	).Scan(&o.ID, &o.AccountID, &o.Ordered, &o.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	lines, err := loadOrderLines(ctx, r.db, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

func loadOrderLines(ctx context.Context, q querier, orderIDs []string) (map[string][]entity.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, listing_id, title, qty, price_snapshot FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]entity.OrderLine, len(orderIDs))
	for rows.Next() {
		var line entity.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ListingID, &line.Title, &line.Qty, &line.PriceSnapshot); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		out[line.OrderID] = append(out[line.OrderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order line rows: %w", err)
	}
	return out, nil
}
