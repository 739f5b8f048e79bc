package bidding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/safar/auction-ledger/internal/store"
)

// memRepo applies batches the way the Postgres store does: all ops or none,
// with the aggregate update guarded by the product version.
type memRepo struct {
	mu          sync.Mutex
	products    map[string]models.Product
	bids        map[string][]models.Bid
	beforeApply func()
	commitErr   error
	loadErr     error
	batches     int
}

func newMemRepo(products ...models.Product) *memRepo {
	r := &memRepo{
		products: make(map[string]models.Product),
		bids:     make(map[string][]models.Bid),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memRepo) LoadAuction(_ context.Context, productID string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadErr != nil {
		return nil, r.loadErr
	}
	p, ok := r.products[productID]
	if !ok {
		return nil, database.ErrAuctionNotFound
	}
	return &p, nil
}

func (r *memRepo) ListBids(_ context.Context, productID string) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.Bid(nil), r.bids[productID]...), nil
}

func (r *memRepo) AtomicBatch(_ context.Context, fn func(*store.Batch) error) error {
	batch := store.NewBatch()
	if err := fn(batch); err != nil {
		return err
	}

	if r.beforeApply != nil {
		r.beforeApply()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++

	if r.commitErr != nil {
		return r.commitErr
	}

	products := make(map[string]models.Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	bids := make(map[string][]models.Bid, len(r.bids))
	for k, v := range r.bids {
		bids[k] = append([]models.Bid(nil), v...)
	}

	for _, op := range batch.Ops() {
		switch op.Kind {
		case store.OpUpdateAuctionAggregate:
			p, ok := products[op.ProductID]
			if !ok || p.Version != op.ExpectedVersion {
				return database.ErrOptimisticLockFailed
			}
			p.CurrentBid = op.CurrentBid
			p.BidCount = op.BidCount
			p.Version++
			products[op.ProductID] = p
		case store.OpUpdateBidState:
			list := bids[op.Bid.ProductID]
			found := false
			for i := range list {
				if list[i].ID == op.Bid.ID {
					list[i].Status = op.Bid.Status
					list[i].IsWinning = op.Bid.IsWinning
					found = true
				}
			}
			if !found {
				return fmt.Errorf("bid %s not found", op.Bid.ID)
			}
		case store.OpInsertBid:
			bids[op.Bid.ProductID] = append(bids[op.Bid.ProductID], op.Bid)
		}
	}

	r.products = products
	r.bids = bids
	return nil
}

// bumpVersion simulates another writer committing between read and write.
func (r *memRepo) bumpVersion(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.products[productID]
	p.Version++
	r.products[productID] = p
}

func (r *memRepo) snapshot(productID string) (models.Product, []models.Bid) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.products[productID], append([]models.Bid(nil), r.bids[productID]...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []models.LiveUpdate
}

func (n *recordingNotifier) Notify(_ string, update models.LiveUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
