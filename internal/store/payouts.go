package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
)

const payoutColumns = `id, seller_id, amount, gross_amount, platform_fee, platform_fee_rate, status,
	payment_method, payment_details, order_ids, created_at, updated_at, version`

const inFlightIndex = "payouts_one_in_flight"

func scanPayout(row rowScanner) (*models.Payout, error) {
	payout := &models.Payout{}
	var details []byte

	err := row.Scan(
		&payout.ID,
		&payout.SellerID,
		&payout.Amount,
		&payout.GrossAmount,
		&payout.PlatformFee,
		&payout.PlatformFeeRate,
		&payout.Status,
		&payout.PaymentMethod,
		&details,
		pq.Array(&payout.OrderIDs),
		&payout.CreatedAt,
		&payout.UpdatedAt,
		&payout.Version,
	)
	if err != nil {
		return nil, err
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &payout.PaymentDetails); err != nil {
			return nil, fmt.Errorf("decode payment details: %w", err)
		}
	}
	return payout, nil
}

func ListPayoutsForSeller(ctx context.Context, db *sql.DB, sellerID string) ([]models.Payout, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+payoutColumns+`
		 FROM payouts
		 WHERE seller_id = $1
		 ORDER BY created_at, id`,
		sellerID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []models.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, *payout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payouts, nil
}

// CreatePayout inserts a payout while holding a per-seller advisory lock, so
// the in-flight and order overlap checks cannot race another request for the
// same seller.
func CreatePayout(ctx context.Context, db *sql.DB, payout *models.Payout) (*models.Payout, error) {
	details, err := json.Marshal(payout.PaymentDetails)
	if err != nil {
		return nil, fmt.Errorf("encode payment details: %w", err)
	}

	var created *models.Payout
	err = database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, payout.SellerID); err != nil {
			return fmt.Errorf("lock seller payouts: %w", err)
		}

		var inFlight bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(
			   SELECT 1 FROM payouts
			   WHERE seller_id = $1 AND status IN ($2, $3))`,
			payout.SellerID, models.PayoutStatusPending, models.PayoutStatusProcessing).Scan(&inFlight)
		if err != nil {
			return fmt.Errorf("check in-flight payout: %w", err)
		}
		if inFlight {
			return database.ErrPayoutInFlight
		}

		var overlap bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(
			   SELECT 1 FROM payouts
			   WHERE seller_id = $1 AND status <> $2 AND order_ids && $3)`,
			payout.SellerID, models.PayoutStatusFailed, pq.Array(payout.OrderIDs)).Scan(&overlap)
		if err != nil {
			return fmt.Errorf("check paid orders: %w", err)
		}
		if overlap {
			return database.ErrOrdersAlreadyPaid
		}

		created, err = scanPayout(tx.QueryRowContext(ctx,
			`INSERT INTO payouts (id, seller_id, amount, gross_amount, platform_fee, platform_fee_rate,
			                      status, payment_method, payment_details, order_ids,
			                      created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
			 RETURNING `+payoutColumns,
			payout.ID, payout.SellerID, payout.Amount, payout.GrossAmount, payout.PlatformFee,
			payout.PlatformFeeRate, payout.Status, payout.PaymentMethod, details, pq.Array(payout.OrderIDs)))
		if err != nil {
			if database.IsUniqueViolation(err, inFlightIndex) {
				return database.ErrPayoutInFlight
			}
			return fmt.Errorf("insert payout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func GetPayout(ctx context.Context, db *sql.DB, id string) (*models.Payout, error) {
	payout, err := scanPayout(db.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return payout, nil
}

// ClaimPendingPayout locks the oldest pending payout for a disbursement
// worker. Payouts locked by other workers are skipped.
func ClaimPendingPayout(ctx context.Context, tx *sql.Tx) (*models.Payout, error) {
	payout, err := scanPayout(tx.QueryRowContext(ctx,
		`SELECT `+payoutColumns+`
		 FROM payouts
		 WHERE status = $1
		 ORDER BY created_at
		 FOR UPDATE SKIP LOCKED
		 LIMIT 1`,
		models.PayoutStatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("claim pending payout: %w", err)
	}
	return payout, nil
}

// TransitionPayout moves a payout to next if its status and version still
// match what the caller read.
func TransitionPayout(ctx context.Context, tx *sql.Tx, payout *models.Payout, next models.PayoutStatus) error {
	if !payout.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", database.ErrIllegalTransition, payout.Status, next)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE payouts
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND status = $3 AND version = $4`,
		next, payout.ID, payout.Status, payout.Version)
	if err != nil {
		return fmt.Errorf("transition payout: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	payout.Status = next
	payout.Version++
	return nil
}
