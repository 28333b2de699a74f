package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID         string `bun:"id,pk" json:"id"`
	EventID    string `bun:"event_id,notnull" json:"event_id"`
	UserID     string `bun:"user_id,notnull" json:"user_id"`
	BuyerName  string `bun:"buyer_name,notnull" json:"buyer_name"`
	BuyerEmail string `bun:"buyer_email,notnull" json:"buyer_email"`
	BuyerPhone string `bun:"buyer_phone" json:"buyer_phone,omitempty"`

	Tickets        int             `bun:"tickets,notnull" json:"tickets"`
	TierName       string          `bun:"tier_name,notnull" json:"tier_name"`
	TierPrice      decimal.Decimal `bun:"tier_price,type:decimal(14,2),notnull" json:"tier_price"`
	Subtotal       decimal.Decimal `bun:"subtotal,type:decimal(14,2),notnull" json:"subtotal"`
	DiscountAmount decimal.Decimal `bun:"discount_amount,type:decimal(14,2),notnull" json:"discount_amount"`
	TotalPrice     decimal.Decimal `bun:"total_price,type:decimal(14,2),notnull" json:"total_price"`

	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`

	CouponID              *string `bun:"coupon_id" json:"coupon_id,omitempty"`
	CouponCode            string  `bun:"coupon_code" json:"coupon_code,omitempty"`
	ReferralCodeUsed      string  `bun:"referral_code_used" json:"referral_code_used,omitempty"`
	ReferralCodeGenerated string  `bun:"referral_code_generated" json:"referral_code_generated,omitempty"`

	TicketPDFURL string     `bun:"ticket_pdf_url" json:"ticket_pdf_url,omitempty"`
	CheckedIn    bool       `bun:"checked_in,notnull" json:"checked_in"`
	CheckedInAt  *time.Time `bun:"checked_in_at" json:"checked_in_at,omitempty"`

	PaymentToken         string     `bun:"payment_token" json:"payment_token,omitempty"`
	PaymentRedirectURL   string     `bun:"payment_redirect_url" json:"payment_redirect_url,omitempty"`
	GatewayTransactionID string     `bun:"gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	GatewayStatus        string     `bun:"gateway_status" json:"gateway_status,omitempty"`
	PaymentType          string     `bun:"payment_type" json:"payment_type,omitempty"`
	PaidAt               *time.Time `bun:"paid_at" json:"paid_at,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaid
}

// GatewayUpdate carries the gateway-side fields recorded with a status change.
type GatewayUpdate struct {
	Status        PaymentStatus
	TransactionID string
	RawStatus     string
	PaymentType   string
	At            time.Time
}
