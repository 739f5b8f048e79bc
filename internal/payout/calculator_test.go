package payout

import (
	"fmt"
	"testing"

	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func delivered(id, productID, total string) models.Order {
	return models.Order{ID: id, ProductID: productID, TotalPrice: dec(total), Status: models.OrderStatusDelivered}
}

func TestComputeEligibilityFeeArithmetic(t *testing.T) {
	orders := map[string][]models.Order{"p1": {delivered("o1", "p1", "5000")}}

	result := ComputeEligibility([]string{"p1"}, orders, nil, dec("0.10"))

	assert.Equal(t, "5000.00", result.GrossAmount.StringFixed(2))
	assert.Equal(t, "500.00", result.PlatformFee.StringFixed(2))
	assert.Equal(t, "4500.00", result.NetAmount.StringFixed(2))
	assert.True(t, result.NetAmount.Equal(result.GrossAmount.Sub(result.PlatformFee)))
}

func TestComputeEligibilityRoundsHalfUp(t *testing.T) {
	tests := []struct {
		gross string
		rate  string
		fee   string
		net   string
	}{
		{"0.05", "0.10", "0.01", "0.04"},
		{"10.05", "0.10", "1.01", "9.04"},
		{"33.33", "0.15", "5.00", "28.33"},
		{"19.99", "0.125", "2.50", "17.49"},
		{"0.10", "0.10", "0.01", "0.09"},
	}

	for _, tt := range tests {
		t.Run(tt.gross+"@"+tt.rate, func(t *testing.T) {
			orders := map[string][]models.Order{"p1": {delivered("o1", "p1", tt.gross)}}
			result := ComputeEligibility([]string{"p1"}, orders, nil, dec(tt.rate))
			assert.Equal(t, tt.fee, result.PlatformFee.StringFixed(2))
			assert.Equal(t, tt.net, result.NetAmount.StringFixed(2))
		})
	}
}

func TestComputeEligibilityNoFloatDrift(t *testing.T) {
	var list []models.Order
	for i := 0; i < 1000; i++ {
		list = append(list, delivered(fmt.Sprintf("o%04d", i), "p1", "0.10"))
	}

	result := ComputeEligibility([]string{"p1"}, map[string][]models.Order{"p1": list}, nil, dec("0.10"))

	assert.Equal(t, "100.00", result.GrossAmount.StringFixed(2))
	assert.Equal(t, "10.00", result.PlatformFee.StringFixed(2))
	assert.Equal(t, "90.00", result.NetAmount.StringFixed(2))
}

func TestComputeEligibilityFiltersPaidAndUndelivered(t *testing.T) {
	orders := map[string][]models.Order{
		"p1": {
			delivered("o1", "p1", "100"),
			delivered("o2", "p1", "200"),
			{ID: "o3", ProductID: "p1", TotalPrice: dec("300"), Status: models.OrderStatusShipped},
		},
		"p2": {
			delivered("o4", "p2", "400"),
			delivered("o4", "p2", "400"),
		},
	}

	result := ComputeEligibility([]string{"p1", "p2"}, orders, map[string]bool{"o1": true}, dec("0.10"))

	assert.Equal(t, []string{"o2", "o4"}, result.OrderIDs())
	assert.Equal(t, "600.00", result.GrossAmount.StringFixed(2))
}

func TestComputeEligibilityOrderIndependent(t *testing.T) {
	a := map[string][]models.Order{"p1": {delivered("o2", "p1", "20.10"), delivered("o1", "p1", "10.05")}}
	b := map[string][]models.Order{"p1": {delivered("o1", "p1", "10.05"), delivered("o2", "p1", "20.10")}}

	ra := ComputeEligibility([]string{"p1"}, a, nil, dec("0.10"))
	rb := ComputeEligibility([]string{"p1"}, b, nil, dec("0.10"))

	assert.Equal(t, ra.OrderIDs(), rb.OrderIDs())
	assert.True(t, ra.NetAmount.Equal(rb.NetAmount))
}

func TestComputeEligibilityCapsProducts(t *testing.T) {
	var productIDs []string
	orders := make(map[string][]models.Order)
	for i := 0; i < MaxPayoutProducts+5; i++ {
		pid := fmt.Sprintf("p%03d", i)
		productIDs = append(productIDs, pid)
		orders[pid] = []models.Order{delivered("o-"+pid, pid, "1")}
	}

	result := ComputeEligibility(productIDs, orders, nil, decimal.Zero)

	require.Len(t, result.EligibleOrders, MaxPayoutProducts)
	assert.Equal(t, fmt.Sprintf("%d.00", MaxPayoutProducts), result.NetAmount.StringFixed(2))
}

func TestComputeEligibilityEmpty(t *testing.T) {
	result := ComputeEligibility(nil, nil, nil, dec("0.10"))

	assert.Empty(t, result.EligibleOrders)
	assert.True(t, result.NetAmount.IsZero())
}

func TestPaidOrderIDsIgnoresFailed(t *testing.T) {
	payouts := []models.Payout{
		{ID: "a", Status: models.PayoutStatusCompleted, OrderIDs: []string{"o1", "o2"}},
		{ID: "b", Status: models.PayoutStatusFailed, OrderIDs: []string{"o3"}},
		{ID: "c", Status: models.PayoutStatusProcessing, OrderIDs: []string{"o4"}},
	}

	paid := PaidOrderIDs(payouts)

	assert.Equal(t, map[string]bool{"o1": true, "o2": true, "o4": true}, paid)
}
