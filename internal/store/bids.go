package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/auction-ledger/internal/models"
)

const bidColumns = `id, product_id, user_id, bid_amount, auto_max_bid, bid_date, status, is_winning`

func scanBid(row rowScanner) (models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.ProductID,
		&bid.UserID,
		&bid.Amount,
		&bid.AutoMaxBid,
		&bid.BidDate,
		&bid.Status,
		&bid.IsWinning,
	)
	return bid, err
}

func ListBids(ctx context.Context, db *sql.DB, productID string) ([]models.Bid, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE product_id = $1`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return bids, nil
}

func InsertBid(ctx context.Context, tx *sql.Tx, bid models.Bid) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bids (`+bidColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		bid.ID, bid.ProductID, bid.UserID, bid.Amount, bid.AutoMaxBid, bid.BidDate, bid.Status, bid.IsWinning)
	if err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

func UpdateBidState(ctx context.Context, tx *sql.Tx, bidID, status string, isWinning bool) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bids SET status = $1, is_winning = $2 WHERE id = $3`,
		status, isWinning, bidID)
	if err != nil {
		return fmt.Errorf("update bid %s: %w", bidID, err)
	}
	return nil
}

// ListBidsCursor pages through an auction's bid history, newest first.
func ListBidsCursor(ctx context.Context, db *sql.DB, productID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	var rows *sql.Rows
	if cursorData == nil {
		rows, err = db.QueryContext(ctx,
			`SELECT `+bidColumns+`
			 FROM bids
			 WHERE product_id = $1
			 ORDER BY bid_date DESC, id DESC
			 LIMIT $2`,
			productID, limit+1)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+bidColumns+`
			 FROM bids
			 WHERE product_id = $1
			   AND (bid_date, id) < ($2, $3)
			 ORDER BY bid_date DESC, id DESC
			 LIMIT $4`,
			productID, cursorData.BidDate, cursorData.ID, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(bids) > limit
	if hasMore {
		bids = bids[:limit]
	}

	var nextCursor string
	if hasMore && len(bids) > 0 {
		last := bids[len(bids)-1]
		nextCursor = EncodeCursor(BidCursor{BidDate: last.BidDate, ID: last.ID})
	}

	return &CursorPage{
		Items:      bids,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
