package gochannel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging"
)

// MetadataKey carries the partition key of a message.
const MetadataKey = "key"

type bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates an in-process broker for running without Kafka. Messages
// published before anyone subscribes to a topic are dropped, and consumer
// groups are ignored.
func NewBus(logger *slog.Logger) messaging.Broker {
	return &bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewSlogLogger(logger),
		),
	}
}

func (b *bus) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataKey, key)
	msg.SetContext(ctx)
	return b.pubSub.Publish(topic, msg)
}

// Consume acks every message once the handler returns; errors are logged
// like the Kafka consumer does.
func (b *bus) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Failed to subscribe", "topic", topic, "err", err)
		return
	}

	for msg := range messages {
		if err := handler(ctx, msg.Payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "message_uuid", msg.UUID, "err", err)
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic, "group", groupID)
}

func (b *bus) Close() error {
	return b.pubSub.Close()
}
