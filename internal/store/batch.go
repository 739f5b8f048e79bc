package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type OpKind int

const (
	OpUpdateAuctionAggregate OpKind = iota + 1
	OpUpdateBidState
	OpInsertBid
)

// BatchOp is one queued write. Only the fields relevant to Kind are set.
type BatchOp struct {
	Kind            OpKind
	Bid             models.Bid
	ProductID       string
	ExpectedVersion int
	CurrentBid      decimal.Decimal
	BidCount        int
}

// Batch collects writes that are applied together or not at all.
type Batch struct {
	ops []BatchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

// UpdateAuctionAggregate queues a compare-and-swap on the auction's version.
// Applying the batch fails with database.ErrOptimisticLockFailed when another
// writer committed in between.
func (b *Batch) UpdateAuctionAggregate(productID string, expectedVersion int, currentBid decimal.Decimal, bidCount int) {
	b.ops = append(b.ops, BatchOp{
		Kind:            OpUpdateAuctionAggregate,
		ProductID:       productID,
		ExpectedVersion: expectedVersion,
		CurrentBid:      currentBid,
		BidCount:        bidCount,
	})
}

func (b *Batch) UpdateBidState(bid models.Bid) {
	b.ops = append(b.ops, BatchOp{Kind: OpUpdateBidState, Bid: bid})
}

func (b *Batch) InsertBid(bid models.Bid) {
	b.ops = append(b.ops, BatchOp{Kind: OpInsertBid, Bid: bid})
}

func (b *Batch) Ops() []BatchOp {
	return b.ops
}

// AtomicBatch lets fn queue writes and applies them in one transaction, in
// queue order.
func AtomicBatch(ctx context.Context, db *sql.DB, fn func(*Batch) error) error {
	batch := NewBatch()
	if err := fn(batch); err != nil {
		return err
	}
	if len(batch.ops) == 0 {
		return nil
	}

	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, op := range batch.ops {
			if err := applyOp(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOp(ctx context.Context, tx *sql.Tx, op BatchOp) error {
	switch op.Kind {
	case OpUpdateAuctionAggregate:
		return UpdateAuctionAggregate(ctx, tx, op.ProductID, op.ExpectedVersion, op.CurrentBid, op.BidCount)
	case OpUpdateBidState:
		return UpdateBidState(ctx, tx, op.Bid.ID, op.Bid.Status, op.Bid.IsWinning)
	case OpInsertBid:
		return InsertBid(ctx, tx, op.Bid)
	}
	return fmt.Errorf("unknown batch op %d", op.Kind)
}
