package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/config"
	delivery "github.com/vatsaPatel0097/oddo-ecofinds-project/internal/delivery/http"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/metrics"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/notification"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/outbox"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository/postgres"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/session"
)

func main() {
	cfg := config.Load()
	slog.SetLogLoggerLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	db, err := postgres.InitDB(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// --- Redis sessions ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to redis", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	// --- Images, broker, mail ---
	blobs, closeBlobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init blob store", "err", err)
		os.Exit(1)
	}
	defer closeBlobs()

	broker := newBroker(cfg)
	defer broker.Close()

	srvMetrics := metrics.NewServerMetrics("marketplace")

	// --- Repositories & services ---
	accountRepo := postgres.NewAccountRepository(db)
	listingRepo := postgres.NewListingRepository(db)
	cartRepo := postgres.NewCartRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	listingSvc := service.NewListingService(listingRepo, blobs)
	cartSvc := service.NewCartService(cartRepo, listingRepo)
	orderSvc := service.NewOrderService(orderRepo)
	checkoutSvc := service.NewCheckoutService(
		postgres.NewCheckoutStore(db, cfg.CheckoutLockTimeout),
		service.WithRetries(cfg.CheckoutMaxRetries, 50*time.Millisecond),
		service.WithRecorder(srvMetrics),
	)
	accountSvc := service.NewAccountService(accountRepo, blobs, listingSvc, orderSvc, cartSvc)

	if cfg.SeedDemoData {
		if err := seedDemo(ctx, accountSvc, listingSvc); err != nil {
			slog.Error("Failed to seed demo data", "err", err)
			os.Exit(1)
		}
	}

	// --- Background workers ---
	// Consumers subscribe before the relay starts publishing; the in-process
	// bus drops messages nobody is subscribed to.
	var workers sync.WaitGroup
	mailer := notification.NewOrderConfirmation(accountRepo, newMailer(cfg), cfg.MailFrom)
	workers.Add(2)
	go func() {
		defer workers.Done()
		mailer.Run(ctx, broker)
	}()

	relay := outbox.NewRelay(postgres.NewOutboxStore(db, cfg.OutboxLease), broker, cfg.OutboxInterval, cfg.OutboxBatch, srvMetrics)
	go func() {
		defer workers.Done()
		relay.Run(ctx)
	}()

	// --- HTTP API ---
	handler := delivery.NewHandler(delivery.Deps{
		Accounts:      accountSvc,
		Listings:      listingSvc,
		Carts:         cartSvc,
		Checkout:      checkoutSvc,
		Orders:        orderSvc,
		Sessions:      sessions,
		DB:            db,
		SecureCookies: cfg.GinMode == gin.ReleaseMode,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           delivery.NewRouter(handler, srvMetrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "err", err)
	}
	workers.Wait()
}
