package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingRequest struct {
	EventID      string `json:"event_id" validate:"required"`
	TierName     string `json:"tier_name" validate:"required"`
	NumTickets   int    `json:"num_tickets" validate:"min=1,max=50"`
	CouponCode   string `json:"coupon_code,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	BuyerName    string `json:"buyer_name" validate:"required"`
	BuyerEmail   string `json:"buyer_email" validate:"required,email"`
	BuyerPhone   string `json:"buyer_phone,omitempty"`
}

type BookingResponse struct {
	BookingID           string          `json:"booking_id"`
	PaymentToken        string          `json:"payment_token"`
	RedirectURL         string          `json:"redirect_url"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	CouponApplied       bool            `json:"coupon_applied"`
	CouponIgnoredReason string          `json:"coupon_ignored_reason,omitempty"`
}

type CheckinRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
}

type WithdrawalRequestPayload struct {
	Amount            decimal.Decimal `json:"amount"`
	BankName          string          `json:"bank_name,omitempty"`
	BankAccountNumber string          `json:"bank_account_number,omitempty"`
	BankAccountHolder string          `json:"bank_account_holder,omitempty"`
}

type ProcessWithdrawalPayload struct {
	Action     WithdrawalAction `json:"action" validate:"required,oneof=approve reject"`
	AdminNotes string           `json:"admin_notes,omitempty"`
}

type BalanceResponse struct {
	AffiliateUserID string          `json:"affiliate_user_id"`
	Available       decimal.Decimal `json:"available"`
	Commissions     int             `json:"commissions"`
}

type CouponPayload struct {
	Code          string          `json:"code" validate:"required"`
	DiscountType  DiscountType    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Active        *bool           `json:"active,omitempty"`
	UsageLimit    *int            `json:"usage_limit,omitempty"`
	MinPurchase   decimal.Decimal `json:"min_purchase"`
}

// CouponPatch only touches the fields that are set.
type CouponPatch struct {
	DiscountType  *DiscountType    `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	ClearExpiry   bool             `json:"clear_expiry,omitempty"`
	Active        *bool            `json:"active,omitempty"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	MinPurchase   *decimal.Decimal `json:"min_purchase,omitempty"`
}

type EventPatch struct {
	Name             *string      `json:"name,omitempty"`
	Description      *string      `json:"description,omitempty"`
	Date             *time.Time   `json:"date,omitempty"`
	Location         *string      `json:"location,omitempty"`
	Category         *string      `json:"category,omitempty"`
	Organizer        *string      `json:"organizer,omitempty"`
	ImageURL         *string      `json:"image_url,omitempty"`
	Tiers            *[]PriceTier `json:"tiers,omitempty"`
	AvailableTickets *int         `json:"available_tickets,omitempty"`
}

type CouponCheckRequest struct {
	Code     string          `json:"code" validate:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CouponCheckResponse struct {
	Code           string          `json:"code"`
	Valid          bool            `json:"valid"`
	Reason         string          `json:"reason,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}
