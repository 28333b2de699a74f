package midtrans

import (
	"bytes"
	"context"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

const serverKey = "SB-Mid-server-TEST"

func TestSignatureKnownVector(t *testing.T) {
	sig := Signature("order-1", "200", "250000.00", serverKey)

	assert.Equal(t, "c9440ed5d4d1b6a37ed6dc4fe347d0f723f41d1fdd79e0b42d631c03476f73736070c11ae015b7c6fa88d83edb9cbdbd62241892fe0893d5bd877aa43d671c2e", sig)
	assert.NotEqual(t, sig, Signature("order-1", "201", "250000.00", serverKey))
}

func TestVerifySignature(t *testing.T) {
	n := models.MidtransNotification{
		OrderID:     "order-1",
		StatusCode:  "200",
		GrossAmount: "250000.00",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)

	assert.True(t, VerifySignature(n, serverKey))

	tampered := n
	tampered.GrossAmount = "1.00"
	assert.False(t, VerifySignature(tampered, serverKey))

	unsigned := n
	unsigned.SignatureKey = ""
	assert.False(t, VerifySignature(unsigned, serverKey))

	assert.False(t, VerifySignature(n, ""))
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		tx, fraud string
		want      models.PaymentStatus
		ok        bool
	}{
		{"capture", "accept", models.PaymentPaid, true},
		{"capture", "challenge", models.PaymentPending, true},
		{"capture", "deny", models.PaymentFailed, true},
		{"settlement", "", models.PaymentPaid, true},
		{"pending", "", models.PaymentPending, true},
		{"deny", "", models.PaymentFailed, true},
		{"failure", "", models.PaymentFailed, true},
		{"expire", "", models.PaymentExpired, true},
		{"cancel", "", models.PaymentCancelled, true},
		{"refund", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tx+"/"+tt.fraud, func(t *testing.T) {
			got, ok := MapStatus(tt.tx, tt.fraud)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeSnap struct {
	got  *snap.Request
	resp *snap.Response
	err  *midtrans.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.got = req
	return f.resp, f.err
}

func newTestClient(s snapAPI) *Client {
	var buf bytes.Buffer
	return &Client{snap: s, serverKey: serverKey, logger: logger.NewWithWriter(&buf, "debug")}
}

func TestCreateTransactionBuildsBalancedRequest(t *testing.T) {
	fs := &fakeSnap{resp: &snap.Response{Token: "tok-123", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-123"}}
	c := newTestClient(fs)

	token, err := c.CreateTransaction(context.Background(), models.PaymentRequest{
		OrderID:     "booking-1",
		GrossAmount: decimal.NewFromInt(250000),
		ItemID:      "evt-1",
		ItemName:    "Jazz Night - Regular",
		UnitPrice:   decimal.NewFromInt(150000),
		Quantity:    2,
		Discount:    decimal.NewFromInt(50000),
		BuyerName:   "Rina",
		BuyerEmail:  "rina@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.Token)

	req := fs.got
	require.NotNil(t, req)
	assert.Equal(t, "booking-1", req.TransactionDetails.OrderID)
	assert.Equal(t, int64(250000), req.TransactionDetails.GrossAmt)

	var itemTotal int64
	for _, it := range *req.Items {
		itemTotal += it.Price * int64(it.Qty)
	}
	assert.Equal(t, req.TransactionDetails.GrossAmt, itemTotal)
	assert.Equal(t, "rina@example.com", req.CustomerDetail.Email)
}

func TestCreateTransactionGrossFollowsRoundedItems(t *testing.T) {
	fs := &fakeSnap{resp: &snap.Response{Token: "tok-9"}}
	c := newTestClient(fs)

	_, err := c.CreateTransaction(context.Background(), models.PaymentRequest{
		OrderID:     "booking-9",
		GrossAmount: decimal.RequireFromString("185.25"),
		UnitPrice:   decimal.RequireFromString("100.50"),
		Quantity:    2,
		Discount:    decimal.RequireFromString("15.75"),
	})
	require.NoError(t, err)

	req := fs.got
	var itemTotal int64
	for _, it := range *req.Items {
		itemTotal += it.Price * int64(it.Qty)
	}
	assert.Equal(t, itemTotal, req.TransactionDetails.GrossAmt)
	assert.Equal(t, int64(186), req.TransactionDetails.GrossAmt)
}

func TestCreateTransactionGatewayError(t *testing.T) {
	fs := &fakeSnap{err: &midtrans.Error{Message: "unauthorized", StatusCode: 401}}
	c := newTestClient(fs)

	_, err := c.CreateTransaction(context.Background(), models.PaymentRequest{
		OrderID:     "booking-2",
		GrossAmount: decimal.NewFromInt(1000),
		UnitPrice:   decimal.NewFromInt(1000),
		Quantity:    1,
	})

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
