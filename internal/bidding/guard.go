// Package bidding decides whether a bid is accepted and settles the winner
// state of an auction.
package bidding

import (
	"fmt"
	"time"

	"github.com/safar/auction-ledger/internal/apperr"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// MinimumAcceptable is the amount a new bid must strictly exceed: the current
// bid once one exists, else the starting bid if set, else the list price.
func MinimumAcceptable(product *models.Product) decimal.Decimal {
	if product.CurrentBid.IsPositive() {
		return product.CurrentBid
	}
	if product.StartingBid.IsPositive() {
		return product.StartingBid
	}
	return product.Price
}

// Validate checks a proposed bid against an auction snapshot as of now. The
// first failing check decides the rejection reason.
func Validate(product *models.Product, bidderID string, amount decimal.Decimal, now time.Time) error {
	if product == nil {
		return apperr.New(apperr.KindNotFound, apperr.ReasonAuctionNotFound, "auction not found")
	}

	if !product.IsAuction {
		return apperr.New(apperr.KindInvalidState, apperr.ReasonNotAnAuction, "product is not an auction")
	}

	if product.Status != models.ProductStatusPublished {
		return apperr.New(apperr.KindInvalidState, apperr.ReasonAuctionNotOpen,
			fmt.Sprintf("auction is %s", product.Status))
	}

	if product.AuctionEndDate != nil && !product.AuctionEndDate.After(now) {
		return apperr.New(apperr.KindInvalidState, apperr.ReasonAuctionEnded, "auction has ended")
	}

	if bidderID == product.SellerID {
		return apperr.New(apperr.KindForbidden, apperr.ReasonOwnAuctionForbidden, "cannot bid on your own auction")
	}

	minimum := MinimumAcceptable(product)
	if !amount.GreaterThan(minimum) {
		return apperr.New(apperr.KindBusinessRule, apperr.ReasonBidTooLow,
			fmt.Sprintf("bid must exceed %s", minimum.StringFixed(2)))
	}

	return nil
}
