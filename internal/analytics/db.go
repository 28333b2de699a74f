package analytics

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// BookingSortField defines the valid fields for sorting bookings
type BookingSortField string

const (
	BookingSortByTotal     BookingSortField = "total_price"
	BookingSortByCreatedAt BookingSortField = "created_at"
)

// EventBookingOptions filters and pages the booking list of an event
type EventBookingOptions struct {
	Status   models.PaymentStatus
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// DB handles analytics database operations
type DB struct {
	Bun *bun.DB
}

// BookingsByEvents retrieves the bookings of the given events, optionally
// restricted to one payment status
func (db *DB) BookingsByEvents(ctx context.Context, eventIDs []string, status models.PaymentStatus) ([]models.Booking, error) {
	bookings := []models.Booking{}
	if len(eventIDs) == 0 {
		return bookings, nil
	}
	q := db.Bun.NewSelect().
		Model(&bookings).
		Where("event_id IN (?)", bun.In(eventIDs)).
		OrderExpr("created_at ASC")
	if status != "" {
		q = q.Where("payment_status = ?", status)
	}
	err := q.Scan(ctx)
	return bookings, err
}

// EventBookings lists bookings of a single event with filters, sorting and paging
func (db *DB) EventBookings(ctx context.Context, eventID string, opts EventBookingOptions) ([]models.Booking, error) {
	bookings := []models.Booking{}
	q := db.Bun.NewSelect().
		Model(&bookings).
		Where("event_id = ?", eventID)

	if opts.Status != "" {
		q = q.Where("payment_status = ?", opts.Status)
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	switch BookingSortField(strings.ToLower(opts.SortBy)) {
	case BookingSortByTotal:
		q = q.Order("total_price " + direction)
	case BookingSortByCreatedAt:
		q = q.Order("created_at " + direction)
	default:
		// Newest first
		q = q.Order("created_at DESC")
	}

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	err := q.Scan(ctx)
	return bookings, err
}
