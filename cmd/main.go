package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreasstove999/storefront-core/internal/cart"
	"github.com/andreasstove999/storefront-core/internal/catalog"
	"github.com/andreasstove999/storefront-core/internal/checkout"
	"github.com/andreasstove999/storefront-core/internal/config"
	"github.com/andreasstove999/storefront-core/internal/db"
	"github.com/andreasstove999/storefront-core/internal/events"
	"github.com/andreasstove999/storefront-core/internal/httpapi"
	"github.com/andreasstove999/storefront-core/internal/inventory"
	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/payment"
	"github.com/andreasstove999/storefront-core/internal/pricing"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stdout, "[storefront-core] ", log.LstdFlags|log.Lshortfile)

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	rabbitConn := events.MustDialRabbit(cfg.RabbitURL)
	defer rabbitConn.Close()

	publisher, err := events.NewPublisher(rabbitConn)
	if err != nil {
		logger.Fatalf("events: %v", err)
	}
	defer publisher.Close()
	notifier := events.NewNotifier(publisher, logger)

	catalogRepo := catalog.NewPostgresRepository(pool)
	stockRepo := inventory.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool, stockRepo)

	pricingCfg := pricing.Config{
		TaxRateBps:                 cfg.TaxRateBps,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		ShippingFeeCents:           cfg.ShippingFeeCents,
	}

	cartSvc := cart.NewService(cartRepo, catalogRepo, stockRepo)
	gateway := payment.NewHostedCheckout(cfg.PaymentBaseURL)
	store := checkout.NewPostgresStore(pool, stockRepo, orderRepo)
	checkoutSvc := checkout.NewService(cartSvc, store, gateway, notifier, pricingCfg, logger)
	lifecycle := order.NewLifecycle(orderRepo, notifier, logger)

	handler := httpapi.NewHandler(cartSvc, checkoutSvc, lifecycle, orderRepo, stockRepo, logger)
	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("storefront-core listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
