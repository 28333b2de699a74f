package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Reasons reported when a coupon is not applied.
const (
	ReasonNotFound    = "coupon not found"
	ReasonInactive    = "coupon is not active"
	ReasonExpired     = "coupon has expired"
	ReasonExhausted   = "coupon usage limit has been reached"
	ReasonMinPurchase = "subtotal does not meet the coupon minimum purchase"
)

// DiscountResult is the outcome of evaluating a coupon against a subtotal.
type DiscountResult struct {
	IsValid        bool
	DiscountAmount decimal.Decimal
	Reason         string
}

// EvaluateCoupon never fails: an unusable coupon yields a zero discount and a reason.
func EvaluateCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) DiscountResult {
	result := DiscountResult{DiscountAmount: decimal.Zero}

	if c == nil {
		result.Reason = ReasonNotFound
		return result
	}
	if !c.Active {
		result.Reason = ReasonInactive
		return result
	}
	if c.Expired(now) {
		result.Reason = ReasonExpired
		return result
	}
	if c.Exhausted() {
		result.Reason = ReasonExhausted
		return result
	}
	if subtotal.LessThan(c.MinPurchase) {
		result.Reason = fmt.Sprintf("%s of %s", ReasonMinPurchase, c.MinPurchase.StringFixed(2))
		return result
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountFixed:
		amount = c.DiscountValue
	case models.DiscountPercentage:
		pct := decimal.Min(decimal.Max(c.DiscountValue, decimal.Zero), hundred)
		amount = subtotal.Mul(pct).Div(hundred).Round(2)
	default:
		result.Reason = fmt.Sprintf("unsupported discount type %q", c.DiscountType)
		return result
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}

	result.IsValid = true
	result.DiscountAmount = amount
	return result
}

// Quote is the price breakdown for one booking.
type Quote struct {
	UnitPrice      decimal.Decimal
	Quantity       int
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	CouponApplied  bool
	CouponReason   string
}

// PriceBooking computes tier.price × quantity and applies the coupon when
// one was requested. couponRequested distinguishes "no coupon" from "unknown code".
func PriceBooking(tier models.PriceTier, quantity int, coupon *models.Coupon, couponRequested bool, now time.Time) Quote {
	subtotal := tier.Price.Mul(decimal.NewFromInt(int64(quantity)))
	q := Quote{
		UnitPrice:      tier.Price,
		Quantity:       quantity,
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
		Total:          subtotal,
	}
	if !couponRequested {
		return q
	}

	res := EvaluateCoupon(coupon, subtotal, now)
	if !res.IsValid {
		q.CouponReason = res.Reason
		return q
	}
	q.CouponApplied = true
	q.DiscountAmount = res.DiscountAmount
	q.Total = subtotal.Sub(res.DiscountAmount)
	return q
}

// Commission returns total × ratePercent / 100 rounded to two places.
func Commission(total decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.LessThanOrEqual(decimal.Zero) || total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return total.Mul(ratePercent).Div(hundred).Round(2)
}
