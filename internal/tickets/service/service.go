package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	ticketdb "ms-booking/internal/tickets/db"
)

// Check-in results, also used as metric labels.
const (
	ResultCheckedIn        = "checked_in"
	ResultNotFound         = "not_found"
	ResultNotPaid          = "not_paid"
	ResultAlreadyCheckedIn = "already_checked_in"
	ResultUpdateFailed     = "update_failed"
	ResultForbidden        = "forbidden"
)

type TicketDBLayer interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CheckIn(ctx context.Context, id string, at time.Time) (bool, error)
	GetCheckInStats(ctx context.Context, eventID string) (*ticketdb.CheckInStats, error)
}

type Recorder interface {
	CheckIn(result string)
}

type TicketService struct {
	DB      TicketDBLayer
	Authz   auth.AuthorizationChecker
	Metrics Recorder
	Logger  *logger.Logger
	now     func() time.Time
}

func NewTicketService(db TicketDBLayer, authz auth.AuthorizationChecker, metrics Recorder, l *logger.Logger) *TicketService {
	return &TicketService{
		DB:      db,
		Authz:   authz,
		Metrics: metrics,
		Logger:  l,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn admits the holder of a paid booking exactly once.
func (s *TicketService) CheckIn(ctx context.Context, callerID, bookingID string) (*models.Booking, error) {
	b, result, err := s.checkIn(ctx, callerID, bookingID)
	s.Logger.LogCheckin(bookingID, result)
	if s.Metrics != nil {
		s.Metrics.CheckIn(result)
	}
	return b, err
}

func (s *TicketService) checkIn(ctx context.Context, callerID, bookingID string) (*models.Booking, string, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, ResultForbidden, err
	}

	b, err := s.DB.GetBooking(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ResultNotFound, apperrors.NotFound("Booking not found")
	}
	if err != nil {
		return nil, ResultUpdateFailed, apperrors.Persistence("failed to load booking", err)
	}
	if !b.IsPaid() {
		return nil, ResultNotPaid, apperrors.DomainRule(apperrors.CodeNotPaid, fmt.Sprintf("Booking is not paid (status: %s)", b.PaymentStatus))
	}
	if b.CheckedIn {
		return nil, ResultAlreadyCheckedIn, alreadyCheckedIn(b)
	}

	at := s.now()
	ok, err := s.DB.CheckIn(ctx, bookingID, at)
	if err != nil {
		return nil, ResultUpdateFailed, apperrors.Upstream(apperrors.CodeUpdateFailed, "Failed to update check-in status", err)
	}
	if !ok {
		// Lost a race with another scanner.
		current, err := s.DB.GetBooking(ctx, bookingID)
		if err == nil && current.CheckedIn {
			return nil, ResultAlreadyCheckedIn, alreadyCheckedIn(current)
		}
		return nil, ResultUpdateFailed, apperrors.Upstream(apperrors.CodeUpdateFailed, "Failed to update check-in status", nil)
	}

	fresh, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		s.Logger.Warn("CHECKIN", fmt.Sprintf("Re-read after check-in of %s failed: %v", bookingID, err))
		b.CheckedIn = true
		b.CheckedInAt = &at
		return b, ResultCheckedIn, nil
	}
	return fresh, ResultCheckedIn, nil
}

func alreadyCheckedIn(b *models.Booking) error {
	msg := "Ticket has already been checked in"
	if b.CheckedInAt != nil {
		msg = fmt.Sprintf("%s at %s", msg, b.CheckedInAt.Format(time.RFC3339))
	}
	return apperrors.DomainRule(apperrors.CodeAlreadyCheckedIn, msg)
}

// Lookup returns the booking behind a scanned code without changing it.
func (s *TicketService) Lookup(ctx context.Context, callerID, bookingID string) (*models.Booking, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	b, err := s.DB.GetBooking(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("Booking not found")
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load booking", err)
	}
	return b, nil
}

func (s *TicketService) Stats(ctx context.Context, callerID, eventID string) (*ticketdb.CheckInStats, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	stats, err := s.DB.GetCheckInStats(ctx, eventID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load check-in stats", err)
	}
	return stats, nil
}

func (s *TicketService) requireAdmin(ctx context.Context, callerID string) error {
	ok, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return apperrors.Persistence("failed to check permissions", err)
	}
	if !ok {
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}
