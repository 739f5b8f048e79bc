package bidding

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/auction-ledger/internal/apperr"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/safar/auction-ledger/internal/store"
	"github.com/shopspring/decimal"
)

type Repository interface {
	LoadAuction(ctx context.Context, productID string) (*models.Product, error)
	ListBids(ctx context.Context, productID string) ([]models.Bid, error)
	AtomicBatch(ctx context.Context, fn func(*store.Batch) error) error
}

// Notifier delivers live updates without blocking and without reporting
// failures back to the caller.
type Notifier interface {
	Notify(auctionID string, update models.LiveUpdate)
}

type Coordinator struct {
	repo               Repository
	notifier           Notifier
	logger             *slog.Logger
	now                func() time.Time
	newID              func() string
	maxConflictRetries int
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

func WithMaxConflictRetries(n int) Option {
	return func(c *Coordinator) { c.maxConflictRetries = n }
}

func NewCoordinator(repo Repository, notifier Notifier, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:               repo,
		notifier:           notifier,
		logger:             logger,
		now:                func() time.Time { return time.Now().UTC() },
		newID:              uuid.NewString,
		maxConflictRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaceBid validates and settles a bid in one atomic write guarded by the
// auction's version. When another bid commits first the whole
// read-validate-settle cycle runs again against fresh state, so a stale
// current bid can never be accepted.
func (c *Coordinator) PlaceBid(ctx context.Context, productID, bidderID string, amount decimal.Decimal, autoMaxBid decimal.NullDecimal) (*models.Bid, error) {
	if err := validateBidInput(productID, bidderID, amount, autoMaxBid); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		bid, agg, err := c.settleOnce(ctx, productID, bidderID, amount, autoMaxBid)
		if err == nil {
			c.logger.Info("bid placed",
				"product_id", productID,
				"bid_id", bid.ID,
				"amount", bid.Amount.StringFixed(2),
				"bid_count", agg.BidCount)
			c.notify(bid, agg)
			return bid, nil
		}

		if !errors.Is(err, database.ErrOptimisticLockFailed) {
			return nil, err
		}
		if attempt >= c.maxConflictRetries {
			return nil, apperr.Wrap(err, apperr.KindTransientStorage, apperr.ReasonSettlementConflict,
				"auction changed concurrently, retry the bid")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperr.Storage(ctxErr, "place bid")
		}

		c.logger.Debug("settlement conflict, retrying",
			"product_id", productID,
			"attempt", attempt+1)
	}
}

func (c *Coordinator) settleOnce(ctx context.Context, productID, bidderID string, amount decimal.Decimal, autoMaxBid decimal.NullDecimal) (*models.Bid, Aggregate, error) {
	product, err := c.repo.LoadAuction(ctx, productID)
	if err != nil {
		if errors.Is(err, database.ErrAuctionNotFound) {
			return nil, Aggregate{}, apperr.Wrap(err, apperr.KindNotFound, apperr.ReasonAuctionNotFound, "auction not found")
		}
		return nil, Aggregate{}, apperr.Storage(err, "load auction")
	}

	existing, err := c.repo.ListBids(ctx, productID)
	if err != nil {
		return nil, Aggregate{}, apperr.Storage(err, "list bids")
	}

	now := c.now()
	if err := Validate(product, bidderID, amount, now); err != nil {
		return nil, Aggregate{}, err
	}

	newBid := models.Bid{
		ID:         c.newID(),
		ProductID:  productID,
		UserID:     bidderID,
		Amount:     amount,
		AutoMaxBid: autoMaxBid,
		BidDate:    now,
	}

	updated, agg := Settle(existing, newBid)
	winner := updated[len(updated)-1]
	changed := ChangedBids(existing, updated)

	// The aggregate goes first so a conflict aborts before any bid row is
	// touched, and outbid flips precede the insert so the one-winner index
	// holds at every statement.
	err = c.repo.AtomicBatch(ctx, func(batch *store.Batch) error {
		batch.UpdateAuctionAggregate(product.ID, product.Version, agg.CurrentBid, agg.BidCount)
		for _, bid := range changed {
			batch.UpdateBidState(bid)
		}
		batch.InsertBid(winner)
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrOptimisticLockFailed) || database.IsUniqueViolation(err, "bids_one_winner") {
			return nil, Aggregate{}, database.ErrOptimisticLockFailed
		}
		return nil, Aggregate{}, apperr.Storage(err, "commit settlement")
	}

	return &winner, agg, nil
}

func (c *Coordinator) notify(bid *models.Bid, agg Aggregate) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(bid.ProductID, models.LiveUpdate{
		CurrentBid: agg.CurrentBid,
		BidCount:   agg.BidCount,
		LastBid: models.LastBid{
			Amount:    bid.Amount,
			BidderID:  bid.UserID,
			Timestamp: bid.BidDate,
		},
	})
}

func validateBidInput(productID, bidderID string, amount decimal.Decimal, autoMaxBid decimal.NullDecimal) error {
	if strings.TrimSpace(productID) == "" {
		return apperr.Validation("product id is required")
	}
	if strings.TrimSpace(bidderID) == "" {
		return apperr.Validation("bidder id is required")
	}
	if !amount.IsPositive() {
		return apperr.Validation("bid amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.Validation("bid amount has more than 2 decimal places")
	}
	if autoMaxBid.Valid && autoMaxBid.Decimal.LessThan(amount) {
		return apperr.Validation("auto max bid must not be below the bid amount")
	}
	return nil
}
