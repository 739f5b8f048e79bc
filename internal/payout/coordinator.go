package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/auction-ledger/internal/apperr"
	"github.com/safar/auction-ledger/internal/database"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

const (
	MethodBankTransfer = "bank_transfer"
	MethodPayPal       = "paypal"
	MethodStripe       = "stripe"
)

// requiredDetails lists the method details each payment method needs.
var requiredDetails = map[string][]string{
	MethodBankTransfer: {"account_name", "account_number", "bank_code"},
	MethodPayPal:       {"email"},
	MethodStripe:       {"account_id"},
}

type Repository interface {
	ListPayoutsForSeller(ctx context.Context, sellerID string) ([]models.Payout, error)
	ListProductIDsForSeller(ctx context.Context, sellerID string, limit int) ([]string, error)
	ListDeliveredOrdersForProducts(ctx context.Context, productIDs []string) ([]models.Order, error)
	CreatePayout(ctx context.Context, payout *models.Payout) (*models.Payout, error)
}

type Coordinator struct {
	repo        Repository
	logger      *slog.Logger
	feeRate     decimal.Decimal
	maxProducts int
	newID       func() string
}

func NewCoordinator(repo Repository, logger *slog.Logger, feeRate decimal.Decimal, maxProducts int) *Coordinator {
	if maxProducts <= 0 || maxProducts > MaxPayoutProducts {
		maxProducts = MaxPayoutProducts
	}
	return &Coordinator{
		repo:        repo,
		logger:      logger,
		feeRate:     feeRate,
		maxProducts: maxProducts,
		newID:       uuid.NewString,
	}
}

// RequestPayout records a pending payout for every delivered order of the
// seller that no earlier non-failed payout covers. A seller can have only one
// pending or processing payout at a time.
func (c *Coordinator) RequestPayout(ctx context.Context, sellerID, method string, details map[string]string) (*models.Payout, error) {
	if err := validatePayoutInput(sellerID, method, details); err != nil {
		return nil, err
	}

	existing, err := c.repo.ListPayoutsForSeller(ctx, sellerID)
	if err != nil {
		return nil, apperr.Storage(err, "list payouts")
	}
	for _, p := range existing {
		if p.Status.InFlight() {
			return nil, apperr.New(apperr.KindBusinessRule, apperr.ReasonPayoutAlreadyPending,
				fmt.Sprintf("payout %s is still %s", p.ID, p.Status))
		}
	}

	productIDs, err := c.repo.ListProductIDsForSeller(ctx, sellerID, c.maxProducts)
	if err != nil {
		return nil, apperr.Storage(err, "list seller products")
	}

	orders, err := c.repo.ListDeliveredOrdersForProducts(ctx, productIDs)
	if err != nil {
		return nil, apperr.Storage(err, "list delivered orders")
	}

	result := ComputeEligibility(productIDs, GroupByProduct(orders), PaidOrderIDs(existing), c.feeRate)
	if len(result.EligibleOrders) == 0 || !result.NetAmount.IsPositive() {
		return nil, apperr.New(apperr.KindBusinessRule, apperr.ReasonNoEligibleEarnings, "no eligible earnings to pay out")
	}

	created, err := c.repo.CreatePayout(ctx, &models.Payout{
		ID:              c.newID(),
		SellerID:        sellerID,
		Amount:          result.NetAmount,
		GrossAmount:     result.GrossAmount,
		PlatformFee:     result.PlatformFee,
		PlatformFeeRate: c.feeRate,
		Status:          models.PayoutStatusPending,
		PaymentMethod:   method,
		PaymentDetails:  details,
		OrderIDs:        result.OrderIDs(),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrPayoutInFlight):
			return nil, apperr.Wrap(err, apperr.KindBusinessRule, apperr.ReasonPayoutAlreadyPending, "a payout is already pending")
		case errors.Is(err, database.ErrOrdersAlreadyPaid):
			return nil, apperr.Wrap(err, apperr.KindBusinessRule, apperr.ReasonOrdersAlreadyPaid, "orders were paid by a concurrent payout")
		}
		return nil, apperr.Storage(err, "create payout")
	}

	c.logger.Info("payout requested",
		"seller_id", sellerID,
		"payout_id", created.ID,
		"orders", len(created.OrderIDs),
		"gross", created.GrossAmount.StringFixed(2),
		"net", created.Amount.StringFixed(2))

	return created, nil
}

func validatePayoutInput(sellerID, method string, details map[string]string) error {
	if strings.TrimSpace(sellerID) == "" {
		return apperr.Validation("seller id is required")
	}

	required, ok := requiredDetails[method]
	if !ok {
		return apperr.Validation("unsupported payment method %q", method)
	}

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(details[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing %s details: %s", method, strings.Join(missing, ", "))
	}

	return nil
}
