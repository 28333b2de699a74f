package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

type BookingEvent struct {
	BookingID     string               `json:"booking_id"`
	EventID       string               `json:"event_id"`
	UserID        string               `json:"user_id"`
	TierName      string               `json:"tier_name"`
	Tickets       int                  `json:"tickets"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CouponCode    string               `json:"coupon_code,omitempty"`
	ReferralCode  string               `json:"referral_code,omitempty"`
	TicketPDFURL  string               `json:"ticket_pdf_url,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

type WithdrawalEvent struct {
	WithdrawalID    string                  `json:"withdrawal_id"`
	AffiliateUserID string                  `json:"affiliate_user_id"`
	Amount          decimal.Decimal         `json:"amount"`
	Status          models.WithdrawalStatus `json:"status"`
	ProcessedBy     string                  `json:"processed_by"`
	OccurredAt      time.Time               `json:"occurred_at"`
}

// FulfillmentRetry asks the retry consumer to redo ticket delivery.
type FulfillmentRetry struct {
	BookingID string    `json:"booking_id"`
	Reason    string    `json:"reason"`
	Attempt   int       `json:"attempt"`
	QueuedAt  time.Time `json:"queued_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// EventPublisher maps domain changes onto the configured topics.
type EventPublisher struct {
	producer publisher
	topics   config.TopicConfig
}

func NewEventPublisher(p publisher, topics config.TopicConfig) *EventPublisher {
	return &EventPublisher{producer: p, topics: topics}
}

func (p *EventPublisher) PublishBookingCreated(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.topics.BookingCreated, b.ID, bookingEvent(b))
}

func (p *EventPublisher) PublishBookingPaid(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.topics.BookingPaid, b.ID, bookingEvent(b))
}

func (p *EventPublisher) PublishStatusChanged(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.topics.BookingStatus, b.ID, bookingEvent(b))
}

func (p *EventPublisher) PublishWithdrawalProcessed(ctx context.Context, w *models.WithdrawalRequest) error {
	return p.publish(ctx, p.topics.WithdrawalProcessed, w.ID, WithdrawalEvent{
		WithdrawalID:    w.ID,
		AffiliateUserID: w.AffiliateUserID,
		Amount:          w.RequestedAmount,
		Status:          w.Status,
		ProcessedBy:     w.ProcessedBy,
		OccurredAt:      time.Now().UTC(),
	})
}

func (p *EventPublisher) PublishFulfillmentRetry(ctx context.Context, bookingID, reason string, attempt int) error {
	return p.publish(ctx, p.topics.FulfillmentRetry, bookingID, FulfillmentRetry{
		BookingID: bookingID,
		Reason:    reason,
		Attempt:   attempt,
		QueuedAt:  time.Now().UTC(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return p.producer.Publish(ctx, topic, key, value)
}

func bookingEvent(b *models.Booking) BookingEvent {
	return BookingEvent{
		BookingID:     b.ID,
		EventID:       b.EventID,
		UserID:        b.UserID,
		TierName:      b.TierName,
		Tickets:       b.Tickets,
		TotalPrice:    b.TotalPrice,
		PaymentStatus: b.PaymentStatus,
		CouponCode:    b.CouponCode,
		ReferralCode:  b.ReferralCodeUsed,
		TicketPDFURL:  b.TicketPDFURL,
		OccurredAt:    time.Now().UTC(),
	}
}
