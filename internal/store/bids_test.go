package store_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/safar/auction-ledger/internal/apperr"
	"github.com/safar/auction-ledger/internal/bidding"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/safar/auction-ledger/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopNotifier struct{}

func (nopNotifier) Notify(string, models.LiveUpdate) {}

func newSettlement(repo *store.Postgres, retries int) *bidding.Coordinator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return bidding.NewCoordinator(repo, nopNotifier{}, logger, bidding.WithMaxConflictRetries(retries))
}

func TestPlaceBidPersistsSettlement(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, db, "seller-1")
	mustCreateUser(t, db, "buyer-1")
	mustCreateUser(t, db, "buyer-2")
	mustCreateAuction(t, db, "lot-1", "seller-1", "1000")

	repo := store.NewPostgres(db)
	c := newSettlement(repo, 3)

	first, err := c.PlaceBid(ctx, "lot-1", "buyer-1", decimal.RequireFromString("1500"), decimal.NullDecimal{})
	require.NoError(t, err)
	second, err := c.PlaceBid(ctx, "lot-1", "buyer-2", decimal.RequireFromString("1600.50"),
		decimal.NewNullDecimal(decimal.RequireFromString("2000")))
	require.NoError(t, err)

	_, err = c.PlaceBid(ctx, "lot-1", "buyer-1", decimal.RequireFromString("1600.50"), decimal.NullDecimal{})
	assert.Equal(t, apperr.ReasonBidTooLow, apperr.ReasonOf(err))

	_, err = c.PlaceBid(ctx, "lot-1", "seller-1", decimal.RequireFromString("5000"), decimal.NullDecimal{})
	assert.Equal(t, apperr.ReasonOwnAuctionForbidden, apperr.ReasonOf(err))

	product, err := store.LoadAuction(ctx, db, "lot-1")
	require.NoError(t, err)
	assert.Equal(t, "1600.50", product.CurrentBid.StringFixed(2))
	assert.Equal(t, 2, product.BidCount)
	assert.Equal(t, 3, product.Version)

	bids, err := store.ListBids(ctx, db, "lot-1")
	require.NoError(t, err)
	require.Len(t, bids, 2)

	byID := map[string]models.Bid{}
	for _, b := range bids {
		byID[b.ID] = b
	}
	assert.Equal(t, models.BidStatusOutbid, byID[first.ID].Status)
	assert.False(t, byID[first.ID].IsWinning)
	assert.Equal(t, models.BidStatusActive, byID[second.ID].Status)
	assert.True(t, byID[second.ID].IsWinning)
	assert.True(t, byID[second.ID].AutoMaxBid.Valid)
}

func TestPlaceBidUnknownAuction(t *testing.T) {
	db := setupTestDB(t)
	mustCreateUser(t, db, "buyer-1")

	c := newSettlement(store.NewPostgres(db), 3)
	_, err := c.PlaceBid(context.Background(), "missing", "buyer-1", decimal.NewFromInt(10), decimal.NullDecimal{})

	assert.Equal(t, apperr.ReasonAuctionNotFound, apperr.ReasonOf(err))
}

func TestConcurrentBidsKeepOneWinner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const bidders = 12
	mustCreateUser(t, db, "seller-1")
	for i := 0; i < bidders; i++ {
		mustCreateUser(t, db, fmt.Sprintf("buyer-%d", i))
	}
	mustCreateAuction(t, db, "lot-1", "seller-1", "100")

	c := newSettlement(store.NewPostgres(db), 50)

	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(200 + i*10))
			_, err := c.PlaceBid(ctx, "lot-1", fmt.Sprintf("buyer-%d", i), amount, decimal.NullDecimal{})
			if err != nil {
				assert.Contains(t,
					[]apperr.Reason{apperr.ReasonBidTooLow, apperr.ReasonSettlementConflict},
					apperr.ReasonOf(err))
			}
		}(i)
	}
	wg.Wait()

	product, err := store.LoadAuction(ctx, db, "lot-1")
	require.NoError(t, err)

	bids, err := store.ListBids(ctx, db, "lot-1")
	require.NoError(t, err)
	require.NotEmpty(t, bids)

	winners := 0
	highest := decimal.Zero
	for _, b := range bids {
		if b.IsWinning {
			winners++
			assert.True(t, b.Amount.Equal(product.CurrentBid))
		}
		if b.Amount.GreaterThan(highest) {
			highest = b.Amount
		}
	}
	assert.Equal(t, 1, winners)
	assert.True(t, highest.Equal(product.CurrentBid))
	assert.Equal(t, len(bids), product.BidCount)
}

func TestUpdateAuctionAggregateRejectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, db, "seller-1")
	product := mustCreateAuction(t, db, "lot-1", "seller-1", "100")

	err := store.AtomicBatch(ctx, db, func(b *store.Batch) error {
		b.UpdateAuctionAggregate(product.ID, product.Version+1, decimal.NewFromInt(150), 1)
		return nil
	})
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

	after, err := store.LoadAuction(ctx, db, "lot-1")
	require.NoError(t, err)
	assert.True(t, after.CurrentBid.IsZero())
	assert.Equal(t, product.Version, after.Version)
}

func TestListBidsCursorPages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, db, "seller-1")
	mustCreateUser(t, db, "buyer-1")
	mustCreateAuction(t, db, "lot-1", "seller-1", "100")

	c := newSettlement(store.NewPostgres(db), 3)
	for i := 1; i <= 5; i++ {
		_, err := c.PlaceBid(ctx, "lot-1", "buyer-1", decimal.NewFromInt(int64(100+i*10)), decimal.NullDecimal{})
		require.NoError(t, err)
	}

	var seen []string
	cursor := ""
	for {
		page, err := store.ListBidsCursor(ctx, db, "lot-1", cursor, 2)
		require.NoError(t, err)

		for _, b := range page.Items.([]models.Bid) {
			seen = append(seen, b.Amount.String())
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []string{"150", "140", "130", "120", "110"}, seen)
}
