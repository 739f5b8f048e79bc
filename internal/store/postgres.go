package store

import (
	"context"
	"database/sql"

	"github.com/safar/auction-ledger/internal/models"
)

// Postgres binds the package functions to one connection pool so the
// settlement and payout coordinators can depend on small interfaces.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) LoadAuction(ctx context.Context, productID string) (*models.Product, error) {
	return LoadAuction(ctx, p.DB, productID)
}

func (p *Postgres) ListBids(ctx context.Context, productID string) ([]models.Bid, error) {
	return ListBids(ctx, p.DB, productID)
}

func (p *Postgres) AtomicBatch(ctx context.Context, fn func(*Batch) error) error {
	return AtomicBatch(ctx, p.DB, fn)
}

func (p *Postgres) ListBidsCursor(ctx context.Context, productID, cursor string, limit int) (*CursorPage, error) {
	return ListBidsCursor(ctx, p.DB, productID, cursor, limit)
}

// DisplayName resolves the name shown to auction watchers.
func (p *Postgres) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := GetUser(ctx, p.DB, userID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

func (p *Postgres) ListPayoutsForSeller(ctx context.Context, sellerID string) ([]models.Payout, error) {
	return ListPayoutsForSeller(ctx, p.DB, sellerID)
}

func (p *Postgres) ListProductIDsForSeller(ctx context.Context, sellerID string, limit int) ([]string, error) {
	return ListProductIDsForSeller(ctx, p.DB, sellerID, limit)
}

func (p *Postgres) ListDeliveredOrdersForProducts(ctx context.Context, productIDs []string) ([]models.Order, error) {
	return ListDeliveredOrdersForProducts(ctx, p.DB, productIDs)
}

func (p *Postgres) CreatePayout(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	return CreatePayout(ctx, p.DB, payout)
}
