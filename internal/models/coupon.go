package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	ID            string          `bun:"id,pk" json:"id"`
	Code          string          `bun:"code,unique,notnull" json:"code"`
	DiscountType  DiscountType    `bun:"discount_type,notnull" json:"discount_type"`
	DiscountValue decimal.Decimal `bun:"discount_value,type:decimal(14,2),notnull" json:"discount_value"`
	ExpiresAt     *time.Time      `bun:"expires_at" json:"expires_at,omitempty"`
	Active        bool            `bun:"active,notnull" json:"active"`
	UsageLimit    *int            `bun:"usage_limit" json:"usage_limit,omitempty"`
	TimesUsed     int             `bun:"times_used,notnull" json:"times_used"`
	MinPurchase   decimal.Decimal `bun:"min_purchase,type:decimal(14,2),notnull" json:"min_purchase"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// NormalizeCouponCode is applied on both write and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) Validate() error {
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.IsNegative() || c.DiscountValue.GreaterThan(hundred) {
			return errors.New("percentage discount must be between 0 and 100")
		}
	case DiscountFixed:
		if c.DiscountValue.IsNegative() {
			return errors.New("fixed discount must not be negative")
		}
	default:
		return errors.New("discount_type must be percentage or fixed")
	}
	if c.Code == "" {
		return errors.New("code is required")
	}
	if c.MinPurchase.IsNegative() {
		return errors.New("min_purchase must not be negative")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return errors.New("usage_limit must not be negative")
	}
	if c.UsageLimit != nil && c.TimesUsed > *c.UsageLimit {
		return errors.New("usage_limit is below times_used")
	}
	return nil
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit
}
