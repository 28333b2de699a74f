package midtrans

import (
	"context"
	"errors"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var ErrGatewayUnavailable = errors.New("midtrans snap request failed")

// snapAPI is the subset of snap.Client used here.
type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// Client creates Snap checkout tokens and verifies notification signatures.
type Client struct {
	snap      snapAPI
	serverKey string
	logger    *logger.Logger
}

func NewClient(cfg config.MidtransConfig, l *logger.Logger) *Client {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(cfg.ServerKey, env)

	l.Info("MIDTRANS", fmt.Sprintf("Snap client initialized (production=%t)", cfg.IsProduction))
	return &Client{snap: &s, serverKey: cfg.ServerKey, logger: l}
}

func (c *Client) CreateTransaction(ctx context.Context, req models.PaymentRequest) (*models.PaymentToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, midErr := c.snap.CreateTransaction(buildSnapRequest(req))
	if midErr != nil {
		c.logger.Error("MIDTRANS", fmt.Sprintf("Snap token request for order %s failed: %s", req.OrderID, midErr.Error()))
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, midErr.Error())
	}
	if resp == nil || resp.Token == "" {
		return nil, fmt.Errorf("%w: empty token for order %s", ErrGatewayUnavailable, req.OrderID)
	}

	c.logger.Info("MIDTRANS", fmt.Sprintf("Snap token issued for order %s", req.OrderID))
	return &models.PaymentToken{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifyNotification checks the notification signature against the server key.
func (c *Client) VerifyNotification(n models.MidtransNotification) bool {
	return VerifySignature(n, c.serverKey)
}

// buildSnapRequest expresses the discount as a negative line item. The gross
// amount is the sum of the rounded line items, which Snap requires to match.
func buildSnapRequest(req models.PaymentRequest) *snap.Request {
	unit := req.UnitPrice.Round(0).IntPart()
	items := []midtrans.ItemDetails{{
		ID:    req.ItemID,
		Name:  truncate(req.ItemName, 50),
		Price: unit,
		Qty:   int32(req.Quantity),
	}}
	gross := unit * int64(req.Quantity)
	if discount := req.Discount.Round(0).IntPart(); discount > 0 {
		items = append(items, midtrans.ItemDetails{
			ID:    "DISCOUNT",
			Name:  "Coupon discount",
			Price: -discount,
			Qty:   1,
		})
		gross -= discount
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.BuyerName,
			Email: req.BuyerEmail,
			Phone: req.BuyerPhone,
		},
		Items: &items,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
