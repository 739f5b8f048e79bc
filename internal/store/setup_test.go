package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/safar/auction-ledger/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, database.Migrate(db, database.MigrateUp))

	return db
}

func mustCreateUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := store.CreateUser(context.Background(), db, id, id+"@example.com", "User "+id)
	require.NoError(t, err)
}

func mustCreateAuction(t *testing.T, db *sql.DB, id, sellerID, startingBid string) *models.Product {
	t.Helper()
	end := time.Now().Add(24 * time.Hour)
	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		ID:             id,
		SellerID:       sellerID,
		Title:          "Lot " + id,
		Price:          decimal.RequireFromString(startingBid),
		IsAuction:      true,
		Status:         models.ProductStatusPublished,
		StartingBid:    decimal.RequireFromString(startingBid),
		AuctionEndDate: &end,
	})
	require.NoError(t, err)
	return product
}

func mustCreateDeliveredOrder(t *testing.T, db *sql.DB, id, productID, buyerID, total string) {
	t.Helper()
	_, err := store.CreateOrder(context.Background(), db, store.CreateOrderRequest{
		ID:         id,
		ProductID:  productID,
		BuyerID:    buyerID,
		TotalPrice: decimal.RequireFromString(total),
		Status:     models.OrderStatusDelivered,
	})
	require.NoError(t, err)
}
