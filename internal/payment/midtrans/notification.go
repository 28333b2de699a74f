package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"ms-booking/internal/models"
)

// Signature computes SHA512(order_id + status_code + gross_amount + server_key) in hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(n models.MidtransNotification, serverKey string) bool {
	if serverKey == "" || n.SignatureKey == "" {
		return false
	}
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// MapStatus translates Midtrans transaction_status/fraud_status into a booking
// payment status. ok is false for statuses outside the table.
func MapStatus(transactionStatus, fraudStatus string) (status models.PaymentStatus, ok bool) {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "accept", "":
			return models.PaymentPaid, true
		case "challenge":
			return models.PaymentPending, true
		default:
			return models.PaymentFailed, true
		}
	case "settlement":
		return models.PaymentPaid, true
	case "pending":
		return models.PaymentPending, true
	case "deny", "failure":
		return models.PaymentFailed, true
	case "expire":
		return models.PaymentExpired, true
	case "cancel":
		return models.PaymentCancelled, true
	default:
		return "", false
	}
}
