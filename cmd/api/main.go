package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PixRelay/internal/attribution"
	"PixRelay/internal/config"
	"PixRelay/internal/events"
	"PixRelay/internal/gateway"
	internalhttp "PixRelay/internal/http"
	"PixRelay/internal/payments"
	"PixRelay/internal/services"
	"PixRelay/internal/store"
	"PixRelay/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	ledger := store.New()
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.GatewayTimeout())
	forwarder := attribution.NewClient(attribution.Options{
		URL:      cfg.Attribution.URL,
		Token:    cfg.Attribution.Token,
		Platform: cfg.Attribution.Platform,
		IsTest:   cfg.Attribution.TestMode,
		Timeout:  cfg.AttributionTimeout(),
	}, logger)

	hub := events.NewHub(logger)
	notifier := events.Multi{hub}
	if cfg.Events.RabbitURL != "" {
		publisher, err := events.NewRabbitPublisher(cfg.Events.RabbitURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, status events stay local", "err", err)
		} else {
			defer publisher.Close()
			notifier = append(notifier, publisher)
		}
	}

	orderSvc := &services.OrderService{
		Store:       ledger,
		Gateway:     gw,
		Forwarder:   forwarder,
		Notifier:    notifier,
		Logger:      logger,
		MinAmount:   cfg.Orders.MinAmountCents,
		ExpireAfter: cfg.ExpireAfter(),
	}
	reconciler := payments.NewReconciler(ledger, forwarder, notifier, logger)
	sweeper := &worker.Sweeper{
		Store:       ledger,
		Notifier:    notifier,
		Logger:      logger,
		Lifetime:    cfg.Lifetime(),
		ExpireAfter: cfg.ExpireAfter(),
		Interval:    cfg.SweepInterval(),
	}

	h := internalhttp.NewHandler(orderSvc, reconciler, hub, logger, cfg.Server.IPEchoURL)
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(ctx)

	go func() {
		logger.Info("api listening", "addr", cfg.Server.Addr, "gateway", cfg.Gateway.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopSweeper()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	logger.Info("api stopped")
}
