package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pawmart/storefront/internal/auth"
	"github.com/pawmart/storefront/internal/cart"
	"github.com/pawmart/storefront/internal/catalog"
	"github.com/pawmart/storefront/internal/checkout"
	"github.com/pawmart/storefront/internal/config"
	"github.com/pawmart/storefront/internal/games"
	"github.com/pawmart/storefront/internal/logging"
	"github.com/pawmart/storefront/internal/notify"
	"github.com/pawmart/storefront/internal/payment"
	"github.com/pawmart/storefront/internal/telemetry"
	"github.com/pawmart/storefront/internal/video"
)

// @title PawMart Storefront API
// @version 1.0
// @description Cart, checkout and catalog flows for the PawMart shop.
// @BasePath /api
func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{
		Service: "storefront",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTel, err := telemetry.Init("storefront")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	httpc := telemetry.NewHTTPClient(5 * time.Second)

	session := auth.NewSession(auth.NewHTTPProvider(cfg.AuthBaseURL, httpc), rdb, logger)
	items := catalog.New(cfg.CommerceBaseURL, httpc)
	carts := cart.NewClient(cfg.CommerceBaseURL, httpc)
	agg := cart.NewAggregator(carts, items, logger, 10)
	orders := checkout.NewOrdersClient(cfg.CommerceBaseURL, httpc)
	addresses := checkout.NewAddressClient(cfg.CommerceBaseURL, httpc)
	payments := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentWebhookSecret, httpc)
	journal := checkout.NewPGJournal(pool)

	var notifier checkout.Notifier
	if cfg.SendGridAPIKey != "" {
		notifier = notify.NewEmail(cfg.SendGridAPIKey, cfg.EmailFrom, logger)
	}

	svc := checkout.NewService(agg, orders, addresses, payments, journal, notifier, logger)
	go svc.RunReconciler(ctx, time.Minute)

	registry := games.NewRegistry()
	registry.Register("cricket", func() games.Game { return games.NewCricket() })
	board := games.NewLeaderboard(rdb)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(app{
		log:      logger,
		session:  session,
		agg:      agg,
		carts:    carts,
		items:    items,
		orders:   orders,
		checkout: svc,
		payments: payments,
		videos:   video.New(cfg.VideoBaseURL, httpc),
		registry: registry,
		board:    board,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Info("storefront listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := shutdownTel(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", "error", err)
	}
}
