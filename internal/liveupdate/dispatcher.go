package liveupdate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/sony/gobreaker/v2"
)

const anonymousBidder = "Anonymous"

type NameResolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type DispatcherConfig struct {
	PublishTimeout   time.Duration
	MaxRetries       int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
	RetryInterval    time.Duration
}

// Dispatcher runs each live update as its own background task with a
// timeout, a bounded retry and a circuit breaker shared by all tasks.
// Failures are logged and dropped.
type Dispatcher struct {
	publisher Publisher
	names     NameResolver
	logger    *slog.Logger
	cfg       DispatcherConfig
	breaker   *gobreaker.CircuitBreaker[struct{}]

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher Publisher, names NameResolver, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "live-update",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("live update breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Dispatcher{
		publisher: publisher,
		names:     names,
		logger:    logger,
		cfg:       cfg,
		breaker:   breaker,
	}
}

// Notify schedules delivery and returns immediately.
func (d *Dispatcher) Notify(auctionID string, update models.LiveUpdate) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("live update dropped after shutdown", "auction_id", auctionID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		defer cancel()

		if err := d.deliver(ctx, auctionID, update); err != nil {
			d.logger.Warn("live update not delivered",
				"auction_id", auctionID,
				"error", err)
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, auctionID string, update models.LiveUpdate) error {
	update.LastBid.BidderDisplayName = d.displayName(ctx, update.LastBid.BidderID)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.RetryInterval
	policy.MaxElapsedTime = 0

	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(d.cfg.MaxRetries, 0))), ctx)

	return backoff.Retry(func() error {
		_, err := d.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, d.publisher.PublishLiveUpdate(ctx, auctionID, update)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}, retry)
}

func (d *Dispatcher) displayName(ctx context.Context, userID string) string {
	if d.names == nil || userID == "" {
		return anonymousBidder
	}

	name, err := d.names.DisplayName(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			d.logger.Debug("display name lookup failed", "user_id", userID, "error", err)
		}
		return anonymousBidder
	}
	return name
}

// Close stops accepting updates and waits for in-flight deliveries until
// ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
