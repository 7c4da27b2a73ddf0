package services

import (
	"fmt"

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// ComputeOrderTotals derives order level totals from its lines:
// subtotal = sum(unit price x quantity), tax and discount are the sums of the
// per-line values, total = subtotal + tax - discount.
func ComputeOrderTotals(items []models.OrderItem) models.OrderTotals {
	totals := models.OrderTotals{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		totals.Subtotal = totals.Subtotal.Add(item.UnitPrice.Mul(qty))
		totals.Tax = totals.Tax.Add(item.Tax)
		totals.Discount = totals.Discount.Add(item.Discount)
	}
	totals.Subtotal = totals.Subtotal.Round(moneyPlaces)
	totals.Tax = totals.Tax.Round(moneyPlaces)
	totals.Discount = totals.Discount.Round(moneyPlaces)
	totals.Total = totals.Subtotal.Add(totals.Tax).Sub(totals.Discount)
	return totals
}

// TotalsAddUp reports whether subtotal + tax - discount equals total at
// cent precision.
func TotalsAddUp(t models.OrderTotals) bool {
	expected := t.Subtotal.Add(t.Tax).Sub(t.Discount).Round(moneyPlaces)
	return expected.Equal(t.Total.Round(moneyPlaces))
}

// TotalsChecker applies the configured policy to totals supplied by
// clients. Totals are always stored as received; the checker only decides
// whether a mismatch is ignored, logged or rejected.
type TotalsChecker struct {
	policy string
}

// NewTotalsChecker returns a checker for one of the config.TotalsCheck* policies.
// Unknown policies fall back to logging.
func NewTotalsChecker(policy string) *TotalsChecker {
	switch policy {
	case config.TotalsCheckOff, config.TotalsCheckLog, config.TotalsCheckReject:
	default:
		policy = config.TotalsCheckLog
	}
	return &TotalsChecker{policy: policy}
}

// Check validates t. scope names the totals block in logs and errors.
func (c *TotalsChecker) Check(scope string, t models.OrderTotals) error {
	if c == nil || c.policy == config.TotalsCheckOff {
		return nil
	}

	var problem string
	switch {
	case t.Subtotal.IsNegative() || t.Tax.IsNegative() || t.Discount.IsNegative() || t.Total.IsNegative():
		problem = "negative amount"
	case !TotalsAddUp(t):
		problem = "subtotal + tax - discount != total"
	default:
		return nil
	}

	if c.policy == config.TotalsCheckReject {
		return fmt.Errorf("%w: %s: %s (subtotal=%s tax=%s discount=%s total=%s)",
			ErrTotalsMismatch, scope, problem, t.Subtotal, t.Tax, t.Discount, t.Total)
	}
	utils.LogWarn(ErrTotalsMismatch, "Saving client supplied totals that do not add up", map[string]interface{}{
		"scope":    scope,
		"problem":  problem,
		"subtotal": t.Subtotal.String(),
		"tax":      t.Tax.String(),
		"discount": t.Discount.String(),
		"total":    t.Total.String(),
	})
	return nil
}
