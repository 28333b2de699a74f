package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CommissionStatus string

const (
	CommissionPending              CommissionStatus = "pending"
	CommissionProcessingWithdrawal CommissionStatus = "processing_withdrawal"
	CommissionPaid                 CommissionStatus = "paid"
)

type Commission struct {
	bun.BaseModel `bun:"table:commissions"`

	ID                  string           `bun:"id,pk" json:"id"`
	AffiliateUserID     string           `bun:"affiliate_user_id,notnull" json:"affiliate_user_id"`
	BookingID           string           `bun:"booking_id,notnull,unique" json:"booking_id"`
	Amount              decimal.Decimal  `bun:"amount,type:decimal(14,2),notnull" json:"amount"`
	Status              CommissionStatus `bun:"status,notnull" json:"status"`
	WithdrawalRequestID *string          `bun:"withdrawal_request_id" json:"withdrawal_request_id,omitempty"`
	PaidAt              *time.Time       `bun:"paid_at" json:"paid_at,omitempty"`
	CreatedAt           time.Time        `bun:"created_at,notnull" json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type WithdrawalRequest struct {
	bun.BaseModel `bun:"table:withdrawal_requests"`

	ID                string           `bun:"id,pk" json:"id"`
	AffiliateUserID   string           `bun:"affiliate_user_id,notnull" json:"affiliate_user_id"`
	RequestedAmount   decimal.Decimal  `bun:"requested_amount,type:decimal(14,2),notnull" json:"requested_amount"`
	Status            WithdrawalStatus `bun:"status,notnull" json:"status"`
	BankName          string           `bun:"bank_name,notnull" json:"bank_name"`
	BankAccountNumber string           `bun:"bank_account_number,notnull" json:"bank_account_number"`
	BankAccountHolder string           `bun:"bank_account_holder,notnull" json:"bank_account_holder"`
	AdminNotes        string           `bun:"admin_notes" json:"admin_notes,omitempty"`
	ProcessedBy       string           `bun:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt       *time.Time       `bun:"processed_at" json:"processed_at,omitempty"`
	CreatedAt         time.Time        `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time        `bun:"updated_at,notnull" json:"updated_at"`
}

type WithdrawalAction string

const (
	ActionApprove WithdrawalAction = "approve"
	ActionReject  WithdrawalAction = "reject"
)
