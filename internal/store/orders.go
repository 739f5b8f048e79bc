package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	ID         string
	ProductID  string
	BuyerID    string
	TotalPrice decimal.Decimal
	Status     string
}

func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{}

	query := `
		INSERT INTO orders (id, product_id, buyer_id, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, product_id, buyer_id, total_price, status, created_at, updated_at`

	err := db.QueryRowContext(ctx, query,
		req.ID, req.ProductID, req.BuyerID, req.TotalPrice, req.Status).Scan(
		&order.ID,
		&order.ProductID,
		&order.BuyerID,
		&order.TotalPrice,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

func ListDeliveredOrdersForProducts(ctx context.Context, db *sql.DB, productIDs []string) ([]models.Order, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, buyer_id, total_price, status, created_at, updated_at
		 FROM orders
		 WHERE product_id = ANY($1)
		   AND status = $2`,
		pq.Array(productIDs), models.OrderStatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("list delivered orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.ProductID,
			&order.BuyerID,
			&order.TotalPrice,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
