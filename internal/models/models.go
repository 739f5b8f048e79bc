package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Product is a marketplace listing. With IsAuction set it accepts bids until
// AuctionEndDate; CurrentBid, BidCount and Version are only written by bid
// settlement.
type Product struct {
	ID             string          `json:"id"`
	SellerID       string          `json:"seller_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	IsAuction      bool            `json:"is_auction"`
	Status         string          `json:"status"`
	StartingBid    decimal.Decimal `json:"starting_bid"`
	CurrentBid     decimal.Decimal `json:"current_bid"`
	BidCount       int             `json:"bid_count"`
	AuctionEndDate *time.Time      `json:"auction_end_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

type Bid struct {
	ID         string              `json:"id"`
	ProductID  string              `json:"product_id"`
	UserID     string              `json:"user_id"`
	Amount     decimal.Decimal     `json:"bid_amount"`
	AutoMaxBid decimal.NullDecimal `json:"auto_max_bid"`
	BidDate    time.Time           `json:"bid_date"`
	Status     string              `json:"status"`
	IsWinning  bool                `json:"is_winning"`
}

type Order struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	BuyerID    string          `json:"buyer_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Payout struct {
	ID              string            `json:"id"`
	SellerID        string            `json:"seller_id"`
	Amount          decimal.Decimal   `json:"amount"`
	GrossAmount     decimal.Decimal   `json:"gross_amount"`
	PlatformFee     decimal.Decimal   `json:"platform_fee"`
	PlatformFeeRate decimal.Decimal   `json:"platform_fee_rate"`
	Status          PayoutStatus      `json:"status"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentDetails  map[string]string `json:"payment_details,omitempty"`
	OrderIDs        []string          `json:"order_ids"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
}

// LiveUpdate is the payload pushed to auction watchers after a bid settles.
type LiveUpdate struct {
	CurrentBid decimal.Decimal `json:"currentBid"`
	BidCount   int             `json:"bidCount"`
	LastBid    LastBid         `json:"lastBid"`
}

type LastBid struct {
	Amount            decimal.Decimal `json:"amount"`
	BidderID          string          `json:"-"`
	BidderDisplayName string          `json:"bidderDisplayName"`
	Timestamp         time.Time       `json:"timestamp"`
}

const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusSold      = "sold"
	ProductStatusArchived  = "archived"
)

const (
	BidStatusActive = "active"
	BidStatusOutbid = "outbid"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// InFlight reports whether the payout still blocks a new payout request.
func (s PayoutStatus) InFlight() bool {
	return s == PayoutStatusPending || s == PayoutStatusProcessing
}

// CoversOrders reports whether the payout's order IDs count as paid.
// Failed payouts release their orders.
func (s PayoutStatus) CoversOrders() bool {
	return s != PayoutStatusFailed
}

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusProcessing || next == PayoutStatusFailed
	case PayoutStatusProcessing:
		return next == PayoutStatusCompleted || next == PayoutStatusFailed
	}
	return false
}
