package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

// Observer is told how many events each relay pass published.
type Observer interface {
	ObserveRelayed(n int)
}

// Relay publishes events committed to the outbox table. Delivery is at
// least once: an event is marked sent only after the broker accepted it.
type Relay struct {
	store     repository.OutboxStore
	publisher messaging.Publisher
	interval  time.Duration
	batch     int
	observer  Observer
}

func NewRelay(store repository.OutboxStore, publisher messaging.Publisher, interval time.Duration, batch int, observer Observer) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		observer:  observer,
	}
}

// Run relays on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("Outbox relay started", "interval", r.interval, "batch", r.batch)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox relay shutting down")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Outbox relay pass failed", "err", err)
			}
		}
	}
}

// Flush publishes one batch in id order and stops at the first failure so
// per-key ordering is kept. It returns how many events were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	defer func() {
		if r.observer != nil && sent > 0 {
			r.observer.ObserveRelayed(sent)
		}
	}()

	for _, rec := range records {
		if err := r.publisher.PublishEvent(ctx, rec.Topic, rec.Key, json.RawMessage(rec.Payload)); err != nil {
			return sent, fmt.Errorf("failed to publish event %s: %w", rec.EventID, err)
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
		slog.Debug("Relayed event", "event_id", rec.EventID, "topic", rec.Topic, "key", rec.Key)
	}
	return sent, nil
}
