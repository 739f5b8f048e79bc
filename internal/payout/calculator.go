// Package payout computes what a seller can withdraw and records payouts so
// that no delivered order is ever paid twice.
package payout

import (
	"sort"

	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// MaxPayoutProducts bounds how many of a seller's products one payout
// request scans for delivered orders.
const MaxPayoutProducts = 50

const currencyPlaces int32 = 2

type Eligibility struct {
	EligibleOrders []models.Order
	GrossAmount    decimal.Decimal
	PlatformFee    decimal.Decimal
	NetAmount      decimal.Decimal
}

func (e Eligibility) OrderIDs() []string {
	ids := make([]string, len(e.EligibleOrders))
	for i, order := range e.EligibleOrders {
		ids[i] = order.ID
	}
	return ids
}

// ComputeEligibility sums the delivered, not yet paid orders of the given
// products and splits the total into platform fee and net payout. Only the
// first MaxPayoutProducts product IDs are considered. Rounding is half-up to
// cents; the result does not depend on input order.
func ComputeEligibility(productIDs []string, ordersByProduct map[string][]models.Order, alreadyPaid map[string]bool, feeRate decimal.Decimal) Eligibility {
	if len(productIDs) > MaxPayoutProducts {
		productIDs = productIDs[:MaxPayoutProducts]
	}

	seen := make(map[string]bool)
	var eligible []models.Order
	gross := decimal.Zero

	for _, productID := range productIDs {
		for _, order := range ordersByProduct[productID] {
			if order.Status != models.OrderStatusDelivered || alreadyPaid[order.ID] || seen[order.ID] {
				continue
			}
			seen[order.ID] = true
			eligible = append(eligible, order)
			gross = gross.Add(order.TotalPrice)
		}
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	fee := gross.Mul(feeRate).Round(currencyPlaces)
	net := gross.Sub(fee).Round(currencyPlaces)

	return Eligibility{
		EligibleOrders: eligible,
		GrossAmount:    gross,
		PlatformFee:    fee,
		NetAmount:      net,
	}
}

// PaidOrderIDs collects the orders referenced by payouts that have not failed.
func PaidOrderIDs(payouts []models.Payout) map[string]bool {
	paid := make(map[string]bool)
	for _, p := range payouts {
		if !p.Status.CoversOrders() {
			continue
		}
		for _, id := range p.OrderIDs {
			paid[id] = true
		}
	}
	return paid
}

// GroupByProduct indexes a flat order list by product ID.
func GroupByProduct(orders []models.Order) map[string][]models.Order {
	grouped := make(map[string][]models.Order)
	for _, order := range orders {
		grouped[order.ProductID] = append(grouped[order.ProductID], order)
	}
	return grouped
}
