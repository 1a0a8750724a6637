package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

const consumerGroup = "ecofinds-order-mailer"

// OrderConfirmation mails the buyer when an OrderPlaced event arrives.
type OrderConfirmation struct {
	accounts repository.AccountRepository
	mailer   EmailClient
	from     string
}

func NewOrderConfirmation(accounts repository.AccountRepository, mailer EmailClient, from string) *OrderConfirmation {
	return &OrderConfirmation{accounts: accounts, mailer: mailer, from: from}
}

// Run consumes orders.placed until ctx is cancelled.
func (n *OrderConfirmation) Run(ctx context.Context, sub messaging.Subscriber) {
	sub.Consume(ctx, entity.TopicOrdersPlaced, consumerGroup, n.Handle)
}

func (n *OrderConfirmation) Handle(ctx context.Context, payload []byte) error {
	var event entity.OrderPlaced
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}

	account, err := n.accounts.FindByID(ctx, event.AccountID)
	if errors.Is(err, entity.ErrNotFound) {
		slog.Warn("Skipping confirmation for unknown account", "order_id", event.OrderID, "account_id", event.AccountID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", event.AccountID, err)
	}

	subject := fmt.Sprintf("Your EcoFinds order %s", shortID(event.OrderID))
	if err := n.mailer.Send(ctx, n.from, account.Email, subject, confirmationBody(account, &event)); err != nil {
		return fmt.Errorf("failed to send confirmation for order %s: %w", event.OrderID, err)
	}
	slog.Info("Order confirmation sent", "order_id", event.OrderID)
	return nil
}

func confirmationBody(a *entity.Account, e *entity.OrderPlaced) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order. Here is what you bought:\n\n", a.Username)
	for _, line := range e.Lines {
		price := "n/a"
		if line.PriceSnapshot.Valid {
			price = line.PriceSnapshot.Decimal.StringFixed(2)
		}
		fmt.Fprintf(&b, "  %d x %s @ %s\n", line.Qty, line.Title, price)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", e.Total.StringFixed(2))
	fmt.Fprintf(&b, "Order: %s\nPlaced: %s\n", e.OrderID, e.PlacedAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
