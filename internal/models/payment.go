package models

import "github.com/shopspring/decimal"

// MidtransNotification is the HTTP notification body posted by Midtrans.
type MidtransNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusMessage     string `json:"status_message"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	OrderID           string `json:"order_id"`
	MerchantID        string `json:"merchant_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	Currency          string `json:"currency"`
	SettlementTime    string `json:"settlement_time"`
}

// PaymentRequest asks the gateway for a checkout token.
type PaymentRequest struct {
	OrderID     string
	GrossAmount decimal.Decimal
	ItemID      string
	ItemName    string
	UnitPrice   decimal.Decimal
	Quantity    int
	Discount    decimal.Decimal
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
}

type PaymentToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}
