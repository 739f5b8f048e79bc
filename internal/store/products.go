package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	ID             string
	SellerID       string
	Title          string
	Description    string
	Price          decimal.Decimal
	IsAuction      bool
	Status         string
	StartingBid    decimal.Decimal
	AuctionEndDate *time.Time
}

const productColumns = `id, seller_id, title, description, price, is_auction, status,
	starting_bid, current_bid, bid_count, auction_end_date, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	var endDate sql.NullTime

	err := row.Scan(
		&product.ID,
		&product.SellerID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.IsAuction,
		&product.Status,
		&product.StartingBid,
		&product.CurrentBid,
		&product.BidCount,
		&endDate,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		end := endDate.Time
		product.AuctionEndDate = &end
	}
	return product, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if req.Status == "" {
		req.Status = models.ProductStatusDraft
	}

	query := `
		INSERT INTO products (id, seller_id, title, description, price, is_auction, status,
		                      starting_bid, auction_end_date, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		req.ID, req.SellerID, req.Title, req.Description, req.Price, req.IsAuction,
		req.Status, req.StartingBid, req.AuctionEndDate))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// LoadAuction reads the product with its bid aggregate and version. It does
// not lock the row; settlement relies on the version check at write time.
func LoadAuction(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("load auction: %w", err)
	}

	return product, nil
}

// ListProductIDsForSeller returns at most limit product IDs, oldest first.
func ListProductIDsForSeller(ctx context.Context, db *sql.DB, sellerID string, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM products
		 WHERE seller_id = $1
		 ORDER BY created_at, id
		 LIMIT $2`,
		sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

func UpdateAuctionAggregate(ctx context.Context, tx *sql.Tx, productID string, expectedVersion int, currentBid decimal.Decimal, bidCount int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET current_bid = $1, bid_count = $2, version = version + 1, updated_at = NOW()
		 WHERE id = $3 AND version = $4`,
		currentBid, bidCount, productID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update auction aggregate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}
