package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

const (
	fulfillmentTimeout     = 30 * time.Second
	publishTimeout         = 5 * time.Second
	MaxFulfillmentAttempts = 5
)

// fulfillAsync starts ticket delivery for a settled booking without waiting
// for it.
func (s *BookingService) fulfillAsync(ctx context.Context, b *models.Booking) {
	base := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	s.spawn(func() {
		defer s.inflight.Done()
		s.fulfill(base, b, 0)
	})
}

// Drain waits for background ticket deliveries, or until ctx is done.
func (s *BookingService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fulfill renders, uploads and mails the ticket for a paid booking. Errors
// never propagate: render and upload failures are queued for retry, email
// failures are only logged.
func (s *BookingService) fulfill(ctx context.Context, b *models.Booking, attempt int) {
	deliverCtx, cancel := context.WithTimeout(ctx, fulfillmentTimeout)
	err := s.deliverTicket(deliverCtx, b)
	cancel()

	pubCtx, cancelPub := context.WithTimeout(ctx, publishTimeout)
	defer cancelPub()
	if err != nil {
		s.Logger.Error("FULFILLMENT", fmt.Sprintf("Ticket delivery for %s failed (attempt %d): %v", b.ID, attempt+1, err))
		s.queueRetry(pubCtx, b.ID, err.Error(), attempt+1)
	}

	if err := s.Events.PublishBookingPaid(pubCtx, b); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Kafka publish error (booking paid %s): %v", b.ID, err))
	}
}

func (s *BookingService) deliverTicket(ctx context.Context, b *models.Booking) error {
	event, err := s.DB.GetEvent(ctx, b.EventID)
	if err != nil {
		s.Logger.Warn("FULFILLMENT", fmt.Sprintf("Event %s unavailable for ticket %s: %v", b.EventID, b.ID, err))
		event = nil
	}
	doc := models.NewTicketDocument(b, event)

	pdf, err := s.Renderer.RenderTicket(doc)
	if err != nil {
		s.recordFailure("render")
		return fmt.Errorf("render ticket: %w", err)
	}

	url, err := s.Storage.UploadTicket(ctx, b.ID, pdf)
	if err != nil {
		s.recordFailure("upload")
		return fmt.Errorf("upload ticket: %w", err)
	}
	if err := s.DB.SetTicketPDFURL(ctx, b.ID, url); err != nil {
		s.recordFailure("persist_url")
		return fmt.Errorf("store ticket url: %w", err)
	}
	b.TicketPDFURL = url
	s.Logger.LogBooking("TICKET_UPLOADED", b.ID, url)

	if err := s.Mailer.SendTicket(ctx, models.TicketEmail{To: b.BuyerEmail, Ticket: doc, PDF: pdf, TicketURL: url}); err != nil {
		s.recordFailure("email")
		s.Logger.Error("FULFILLMENT", fmt.Sprintf("Ticket email for %s failed: %v", b.ID, err))
	}
	return nil
}

func (s *BookingService) queueRetry(ctx context.Context, bookingID, reason string, attempt int) {
	if attempt >= MaxFulfillmentAttempts {
		s.Logger.Error("FULFILLMENT", fmt.Sprintf("Giving up on ticket delivery for %s after %d attempts", bookingID, attempt))
		return
	}
	if err := s.Events.PublishFulfillmentRetry(ctx, bookingID, reason, attempt); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Could not queue fulfillment retry for %s: %v", bookingID, err))
	}
}

func (s *BookingService) recordFailure(step string) {
	if s.Metrics != nil {
		s.Metrics.Fulfillment(step)
	}
}

// RetryFulfillment redoes ticket delivery for a paid booking that has no
// stored ticket yet. It is driven by the fulfillment retry topic.
func (s *BookingService) RetryFulfillment(ctx context.Context, bookingID string, attempt int) error {
	b, err := s.DB.GetBookingByID(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		s.Logger.Warn("FULFILLMENT", fmt.Sprintf("Retry for unknown booking %s dropped", bookingID))
		return nil
	}
	if err != nil {
		return err
	}
	if !b.IsPaid() || b.TicketPDFURL != "" {
		return nil
	}

	if err := s.deliverTicket(ctx, b); err != nil {
		s.Logger.Error("FULFILLMENT", fmt.Sprintf("Retry %d for %s failed: %v", attempt, bookingID, err))
		s.queueRetry(ctx, bookingID, err.Error(), attempt+1)
	}
	return nil
}
