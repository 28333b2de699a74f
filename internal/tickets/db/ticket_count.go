package db

import (
	"context"

	"ms-booking/internal/models"
)

type CheckInStats struct {
	EventID          string `json:"event_id"`
	PaidBookings     int    `json:"paid_bookings"`
	PaidTickets      int    `json:"paid_tickets"`
	CheckedIn        int    `json:"checked_in_bookings"`
	CheckedInTickets int    `json:"checked_in_tickets"`
}

// GetCheckInStats aggregates paid and checked-in bookings for one event.
func (d *DB) GetCheckInStats(ctx context.Context, eventID string) (*CheckInStats, error) {
	var rows []struct {
		CheckedIn bool `bun:"checked_in"`
		Bookings  int  `bun:"bookings"`
		Tickets   int  `bun:"tickets"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("checked_in").
		ColumnExpr("COUNT(*) AS bookings").
		ColumnExpr("COALESCE(SUM(tickets), 0) AS tickets").
		Where("event_id = ?", eventID).
		Where("payment_status = ?", models.PaymentPaid).
		Group("checked_in").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	stats := &CheckInStats{EventID: eventID}
	for _, r := range rows {
		stats.PaidBookings += r.Bookings
		stats.PaidTickets += r.Tickets
		if r.CheckedIn {
			stats.CheckedIn += r.Bookings
			stats.CheckedInTickets += r.Tickets
		}
	}
	return stats, nil
}
