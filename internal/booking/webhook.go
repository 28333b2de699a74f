package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperrors"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/models"
	"ms-booking/internal/payment/midtrans"
)

// Webhook outcomes, also used as metric labels.
const (
	OutcomePaid      = "paid"
	OutcomeUpdated   = "updated"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeInFlight  = "in_flight"
	OutcomeRejected  = "rejected"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)

type WebhookResult struct {
	BookingID string               `json:"booking_id"`
	Outcome   string               `json:"outcome"`
	Status    models.PaymentStatus `json:"payment_status,omitempty"`
}

// HandleNotification applies one Midtrans notification. Redeliveries of an
// already applied notification are no-ops.
func (s *BookingService) HandleNotification(ctx context.Context, n models.MidtransNotification) (*WebhookResult, error) {
	res, err := s.handleNotification(ctx, n)
	if s.Metrics != nil {
		switch {
		case err == nil:
			s.Metrics.Webhook(res.Outcome)
		case errors.Is(err, apperrors.ErrInvalidSignature):
			s.Metrics.Webhook(OutcomeRejected)
		case errors.Is(err, apperrors.ErrNotFound):
			s.Metrics.Webhook(OutcomeNotFound)
		default:
			s.Metrics.Webhook(OutcomeError)
		}
	}
	return res, err
}

func (s *BookingService) handleNotification(ctx context.Context, n models.MidtransNotification) (*WebhookResult, error) {
	if !s.Gateway.VerifyNotification(n) {
		s.Logger.LogSecurity("INVALID_SIGNATURE", fmt.Sprintf("order %s status %s", n.OrderID, n.TransactionStatus))
		return nil, &apperrors.Error{Kind: apperrors.KindUnauthorized, Code: apperrors.CodeInvalidSignature, Message: "invalid notification signature"}
	}

	result := &WebhookResult{BookingID: n.OrderID}
	target, ok := midtrans.MapStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		s.Logger.LogWebhook(n.OrderID, n.TransactionStatus, "unrecognised status acknowledged without change")
		result.Outcome = OutcomeIgnored
		return result, nil
	}
	result.Status = target

	release, acquired, err := s.Lock.Acquire(ctx, n.OrderID)
	switch {
	case err != nil:
		s.Logger.Warn("WEBHOOK", fmt.Sprintf("Lock unavailable for %s, continuing: %v", n.OrderID, err))
	case !acquired:
		s.Logger.LogWebhook(n.OrderID, n.TransactionStatus, "another delivery is in flight")
		result.Outcome = OutcomeInFlight
		return result, nil
	default:
		defer release()
	}

	booking, err := s.DB.GetBookingByID(ctx, n.OrderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("booking %s not found", n.OrderID))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load booking", err)
	}
	if booking.IsPaid() {
		s.Logger.LogWebhook(n.OrderID, n.TransactionStatus, "booking already paid")
		result.Outcome = OutcomeDuplicate
		result.Status = models.PaymentPaid
		return result, nil
	}
	s.checkGrossAmount(booking, n)

	update := models.GatewayUpdate{
		Status:        target,
		TransactionID: n.TransactionID,
		RawStatus:     n.TransactionStatus,
		PaymentType:   n.PaymentType,
		At:            s.now(),
	}

	if target != models.PaymentPaid {
		changed, err := s.DB.UpdatePaymentStatus(ctx, booking.ID, update)
		if err != nil {
			return nil, apperrors.Persistence("failed to update booking status", err)
		}
		if !changed {
			result.Outcome = OutcomeDuplicate
			result.Status = models.PaymentPaid
			return result, nil
		}
		booking.PaymentStatus = target
		s.Logger.LogWebhook(n.OrderID, n.TransactionStatus, fmt.Sprintf("booking moved to %s", target))
		if err := s.Events.PublishStatusChanged(ctx, booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Kafka publish error (status %s): %v", booking.ID, err))
		}
		result.Outcome = OutcomeUpdated
		return result, nil
	}

	settled, err := s.DB.Settle(ctx, booking.ID, bookingdb.SettleParams{
		Update:         update,
		CommissionRate: s.CommissionRate,
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("booking %s not found", n.OrderID))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to settle booking", err)
	}
	if !settled.Transitioned {
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	if settled.Oversold {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Booking %s paid with insufficient stock for tier %s; inventory clamped at zero", booking.ID, booking.TierName))
	}
	if settled.CouponOverLimit {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Booking %s paid with coupon %s past its usage limit; use not counted", booking.ID, booking.CouponCode))
	}
	if settled.Commission != nil {
		s.Logger.LogBooking("COMMISSION", booking.ID, fmt.Sprintf("%s credited to %s", settled.Commission.Amount.StringFixed(2), settled.Commission.AffiliateUserID))
	}
	s.Logger.LogWebhook(n.OrderID, n.TransactionStatus, "booking settled as paid")

	s.fulfillAsync(ctx, settled.Booking)

	result.Outcome = OutcomePaid
	return result, nil
}

// checkGrossAmount logs a gateway amount that differs from the booking total.
func (s *BookingService) checkGrossAmount(b *models.Booking, n models.MidtransNotification) {
	gross, err := decimal.NewFromString(n.GrossAmount)
	if err != nil {
		return
	}
	if !gross.Equal(b.TotalPrice.Round(0)) && !gross.Equal(b.TotalPrice) {
		s.Logger.LogSecurity("AMOUNT_MISMATCH", fmt.Sprintf("booking %s total %s, gateway reported %s", b.ID, b.TotalPrice.StringFixed(2), n.GrossAmount))
	}
}
