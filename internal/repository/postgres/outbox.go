package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

const defaultClaimLease = 30 * time.Second

type outboxStore struct {
	db    *sql.DB
	lease time.Duration
}

// NewOutboxStore creates a new OutboxStore backed by Postgres. Claimed
// events become visible to other relays again after lease; a zero lease
// means 30s.
func NewOutboxStore(db *sql.DB, lease time.Duration) repository.OutboxStore {
	if lease <= 0 {
		lease = defaultClaimLease
	}
	return &outboxStore{db: db, lease: lease}
}

func (s *outboxStore) FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	// SKIP LOCKED lets concurrent relays claim disjoint batches; the lease
	// hands a batch back if its relay dies before MarkSent.
	rows, err := s.db.QueryContext(ctx, `
WITH claimed AS (
  SELECT id FROM outbox
  WHERE sent_at IS NULL AND (claimed_until IS NULL OR claimed_until < NOW())
  ORDER BY id
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
UPDATE outbox o SET claimed_until = NOW() + make_interval(secs => $2)
FROM claimed
WHERE o.id = claimed.id
RETURNING o.id, o.event_id, o.topic, o.key, o.payload, o.created_at, o.sent_at`,
		limit, s.lease.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending events: %w", err)
	}
	defer rows.Close()

	var records []entity.OutboxRecord
	for rows.Next() {
		var rec entity.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox rows: %w", err)
	}
	// RETURNING does not keep the CTE order.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *outboxStore) MarkSent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE outbox SET sent_at = NOW(), claimed_until = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark event %d sent: %w", id, err)
	}
	return nil
}
