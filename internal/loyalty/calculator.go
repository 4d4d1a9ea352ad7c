// Package loyalty converts a customer's loyalty points into a redeemable
// amount and keeps the redeemed amount and points consistent.
package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/money"
)

type Calculator struct {
	account domain.LoyaltyAccount
}

func NewCalculator(account domain.LoyaltyAccount) *Calculator {
	return &Calculator{account: account}
}

// UpdateAccount takes fresh points and conversion factor from the order
// document. Any amount already redeemed is kept and checked again on the
// next SetRedeemedAmount.
func (c *Calculator) UpdateAccount(account domain.LoyaltyAccount) {
	account.RedeemedAmount = c.account.RedeemedAmount
	account.RedeemedPoints = c.account.RedeemedPoints
	c.account = account
}

func (c *Calculator) Account() domain.LoyaltyAccount {
	return c.account
}

func (c *Calculator) ReadOnly() bool {
	return c.account.PointsAvailable == 0
}

// MaxRedeemable is the points value floored to precision. It is derived from
// the current account on every call.
func (c *Calculator) MaxRedeemable(precision int32) decimal.Decimal {
	if c.account.PointsAvailable <= 0 || !c.account.ConversionFactor.IsPositive() {
		return decimal.Zero
	}
	value := decimal.NewFromInt(c.account.PointsAvailable).Mul(c.account.ConversionFactor)
	return money.Floor(value, precision)
}

func (c *Calculator) Description(precision int32) string {
	if c.ReadOnly() {
		return "You don't have enough points to redeem."
	}
	return fmt.Sprintf("You can redeem upto %s.", money.Format(c.MaxRedeemable(precision), precision))
}

func (c *Calculator) RedeemEnabled() bool {
	return c.account.RedeemedAmount.IsPositive()
}

func (c *Calculator) Redemption() domain.LoyaltyRedemption {
	return domain.LoyaltyRedemption{
		Enabled: c.RedeemEnabled(),
		Amount:  c.account.RedeemedAmount,
		Points:  c.account.RedeemedPoints,
	}
}

// SetRedeemedAmount records a redemption of value rounded to precision. An
// account without points is read-only and nothing changes. A value above the
// cap clears the redemption instead of clamping it to the cap.
func (c *Calculator) SetRedeemedAmount(value decimal.Decimal, precision int32) error {
	if c.ReadOnly() {
		return domain.ErrRedemptionReadOnly
	}
	value = money.Round(value, precision)
	max := c.MaxRedeemable(precision)
	if value.GreaterThan(max) || value.IsNegative() {
		c.account.RedeemedAmount = decimal.Zero
		c.account.RedeemedPoints = 0
		return &domain.Rejection{
			Kind:    domain.RejectRedemptionExceedsCap,
			Message: fmt.Sprintf("You cannot redeem more than %s.", money.Format(max, precision)),
		}
	}
	c.account.RedeemedAmount = value
	c.account.RedeemedPoints = 0
	if c.account.ConversionFactor.IsPositive() {
		c.account.RedeemedPoints = value.Div(c.account.ConversionFactor).Floor().IntPart()
	}
	return nil
}
