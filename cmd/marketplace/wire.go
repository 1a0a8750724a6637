package main

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/config"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging/gochannel"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/messaging/kafka"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/notification"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/storage/gcs"
)

const (
	demoUsername = "ecofinds-demo"
	demoEmail    = "demo@ecofinds.local"
	demoPassword = "demo-password"
)

// newBlobStore uses GCS when a bucket is configured. The returned func
// closes the client.
func newBlobStore(ctx context.Context, cfg config.Config) (repository.BlobStore, func(), error) {
	if cfg.GCSBucket == "" {
		slog.Warn("GCS_BUCKET not set, image uploads are disabled")
		return gcs.DisabledStore{}, func() {}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	store, err := gcs.NewBlobStore(client, cfg.GCSBucket)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.Info("Image uploads go to GCS", "bucket", cfg.GCSBucket)
	return store, func() { client.Close() }, nil
}

func newBroker(cfg config.Config) messaging.Broker {
	if len(cfg.KafkaBrokers) == 0 {
		slog.Info("KAFKA_BROKERS not set, using in-process event bus")
		return gochannel.NewBus(slog.Default())
	}
	slog.Info("Publishing events to Kafka", "brokers", cfg.KafkaBrokers)
	return kafka.NewKafkaBroker(cfg.KafkaBrokers)
}

func newMailer(cfg config.Config) notification.EmailClient {
	if cfg.SendGridAPIKey == "" {
		return notification.LogClient{}
	}
	return notification.NewSendGridClient(cfg.SendGridAPIKey)
}

// seedDemo creates the demo owner and its catalog. Both steps are no-ops on
// later starts.
func seedDemo(ctx context.Context, accounts *service.AccountService, listings *service.ListingService) error {
	owner, err := accounts.EnsureAccount(ctx, demoUsername, demoEmail, demoPassword)
	if err != nil {
		return err
	}
	return listings.SeedDemo(ctx, owner.ID)
}
