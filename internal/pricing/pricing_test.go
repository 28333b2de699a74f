package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ms-booking/internal/models"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func regularTier() models.PriceTier {
	return models.PriceTier{Name: "Regular", Price: dec(150000), AvailableTickets: 100}
}

func diskon50k() *models.Coupon {
	return &models.Coupon{
		Code:          "DISKON50K",
		DiscountType:  models.DiscountFixed,
		DiscountValue: dec(50000),
		Active:        true,
		MinPurchase:   dec(200000),
	}
}

func TestPriceBookingWithFixedCoupon(t *testing.T) {
	q := PriceBooking(regularTier(), 2, diskon50k(), true, now)

	assert.True(t, q.CouponApplied)
	assert.True(t, q.Subtotal.Equal(dec(300000)))
	assert.True(t, q.DiscountAmount.Equal(dec(50000)))
	assert.True(t, q.Total.Equal(dec(250000)), "total was %s", q.Total)
}

func TestPriceBookingUnknownCouponIsIgnored(t *testing.T) {
	q := PriceBooking(regularTier(), 2, nil, true, now)

	assert.False(t, q.CouponApplied)
	assert.Equal(t, ReasonNotFound, q.CouponReason)
	assert.True(t, q.Total.Equal(dec(300000)))
}

func TestPriceBookingWithoutCoupon(t *testing.T) {
	q := PriceBooking(regularTier(), 3, nil, false, now)

	assert.False(t, q.CouponApplied)
	assert.Empty(t, q.CouponReason)
	assert.True(t, q.Total.Equal(dec(450000)))
}

func TestEvaluateCouponRejections(t *testing.T) {
	past := now.Add(-time.Minute)
	limit := 10

	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		reason string
	}{
		{"inactive", func(c *models.Coupon) { c.Active = false }, ReasonInactive},
		{"expired", func(c *models.Coupon) { c.ExpiresAt = &past }, ReasonExpired},
		{"exhausted", func(c *models.Coupon) { c.UsageLimit = &limit; c.TimesUsed = 10 }, ReasonExhausted},
		{"below minimum", func(c *models.Coupon) { c.MinPurchase = dec(500000) }, ReasonMinPurchase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := diskon50k()
			tt.mutate(c)

			res := EvaluateCoupon(c, dec(300000), now)

			assert.False(t, res.IsValid)
			assert.True(t, res.DiscountAmount.IsZero())
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	fixed := &models.Coupon{Code: "BIG", DiscountType: models.DiscountFixed, DiscountValue: dec(1000000), Active: true}
	res := EvaluateCoupon(fixed, dec(300000), now)
	assert.True(t, res.DiscountAmount.Equal(dec(300000)))

	pct := &models.Coupon{Code: "ALL", DiscountType: models.DiscountPercentage, DiscountValue: dec(100), Active: true}
	res = EvaluateCoupon(pct, dec(300000), now)
	assert.True(t, res.DiscountAmount.Equal(dec(300000)))

	over := &models.Coupon{Code: "OVER", DiscountType: models.DiscountPercentage, DiscountValue: dec(150), Active: true}
	res = EvaluateCoupon(over, dec(300000), now)
	assert.True(t, res.DiscountAmount.LessThanOrEqual(dec(300000)))
}

func TestPercentageDiscount(t *testing.T) {
	c := &models.Coupon{Code: "TEN", DiscountType: models.DiscountPercentage, DiscountValue: dec(10), Active: true}

	res := EvaluateCoupon(c, decimal.RequireFromString("333333"), now)

	assert.True(t, res.IsValid)
	assert.Equal(t, "33333.3", res.DiscountAmount.String())
}

func TestCommission(t *testing.T) {
	assert.True(t, Commission(dec(250000), dec(10)).Equal(dec(25000)))
	assert.True(t, Commission(dec(250000), decimal.Zero).IsZero())
	assert.Equal(t, "18750.75", Commission(decimal.RequireFromString("250010"), decimal.RequireFromString("7.5")).String())
}
