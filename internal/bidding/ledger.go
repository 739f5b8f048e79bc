package bidding

import (
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type Aggregate struct {
	CurrentBid decimal.Decimal
	BidCount   int
}

// Settle makes newBid the single winner. Every existing bid on the same
// product is marked outbid; bids on other products are returned unchanged
// and do not count towards BidCount. The input slice is not modified.
//
// Settle trusts Validate to have proven newBid exceeds every prior bid.
func Settle(existing []models.Bid, newBid models.Bid) ([]models.Bid, Aggregate) {
	updated := make([]models.Bid, 0, len(existing)+1)
	sameProduct := 0

	for _, bid := range existing {
		if bid.ProductID == newBid.ProductID {
			bid.Status = models.BidStatusOutbid
			bid.IsWinning = false
			sameProduct++
		}
		updated = append(updated, bid)
	}

	newBid.Status = models.BidStatusActive
	newBid.IsWinning = true
	updated = append(updated, newBid)

	return updated, Aggregate{
		CurrentBid: newBid.Amount,
		BidCount:   sameProduct + 1,
	}
}

// ChangedBids returns the bids in after whose status or winning flag differs
// from the same bid in before. Bids absent from before are not included.
func ChangedBids(before, after []models.Bid) []models.Bid {
	previous := make(map[string]models.Bid, len(before))
	for _, bid := range before {
		previous[bid.ID] = bid
	}

	var changed []models.Bid
	for _, bid := range after {
		old, ok := previous[bid.ID]
		if !ok {
			continue
		}
		if old.Status != bid.Status || old.IsWinning != bid.IsWinning {
			changed = append(changed, bid)
		}
	}
	return changed
}
