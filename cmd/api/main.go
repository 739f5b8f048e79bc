package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/safar/auction-ledger/internal/api"
	"github.com/safar/auction-ledger/internal/bidding"
	"github.com/safar/auction-ledger/internal/config"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/liveupdate"
	"github.com/safar/auction-ledger/internal/payout"
	"github.com/safar/auction-ledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger := newLogger(cfg.Log.Level)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	logger.Info("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	publishers := liveupdate.Fanout{liveupdate.NewRedisPublisher(redisClient)}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("auction-ledger"))
		if err != nil {
			log.Fatalf("Connect to NATS: %v", err)
		}
		defer nc.Drain()
		publishers = append(publishers, liveupdate.NewNATSPublisher(nc))
		logger.Info("live updates also published to NATS", "url", cfg.NATS.URL)
	}

	repo := store.NewPostgres(db)

	dispatcher := liveupdate.NewDispatcher(publishers, repo, logger, liveupdate.DispatcherConfig{
		PublishTimeout:   cfg.LiveUpdate.PublishTimeout,
		MaxRetries:       cfg.LiveUpdate.MaxRetries,
		BreakerFailures:  cfg.LiveUpdate.BreakerFailures,
		BreakerOpenDelay: cfg.LiveUpdate.BreakerOpenDelay,
	})

	settlement := bidding.NewCoordinator(repo, dispatcher, logger,
		bidding.WithMaxConflictRetries(cfg.Settlement.MaxConflictRetries))
	payouts := payout.NewCoordinator(repo, logger, cfg.Payout.PlatformFeeRate, cfg.Payout.MaxProducts)

	handler := api.NewHandler(settlement, repo, payouts, repo, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := dispatcher.Close(ctx); err != nil {
		logger.Warn("live updates still in flight at shutdown", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
