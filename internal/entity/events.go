package entity

import "time"

// OutboxRecord represents an event waiting in the outbox table to be relayed
// to the message broker.
type OutboxRecord struct {
	ID        int64      `json:"id"`
	EventID   string     `json:"event_id"`
	Topic     string     `json:"topic"`
	Key       string     `json:"key"`
	Payload   []byte     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// Topic names used on the broker.
const (
	TopicOrdersPlaced = "orders.placed"
)
