package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/database"
	"ms-booking/internal/database/dbtest"
	"ms-booking/internal/models"
	"ms-booking/internal/tickets/db"
)

func booking(id string, status models.PaymentStatus, tickets int, checkedIn bool) *models.Booking {
	now := time.Now().UTC()
	return &models.Booking{
		ID: id, EventID: "event-1", UserID: "u-1", BuyerName: "Rina", BuyerEmail: "rina@example.com",
		Tickets: tickets, TierName: "Regular",
		TierPrice: decimal.NewFromInt(1), Subtotal: decimal.NewFromInt(1), DiscountAmount: decimal.Zero, TotalPrice: decimal.NewFromInt(1),
		PaymentStatus: status, CheckedIn: checkedIn, CreatedAt: now, UpdatedAt: now,
	}
}

func TestCheckInIsGuarded(t *testing.T) {
	bunDB := dbtest.New(t)
	repo := &db.DB{Bun: bunDB}
	ctx := context.Background()
	for _, b := range []*models.Booking{
		booking("paid", models.PaymentPaid, 1, false),
		booking("pending", models.PaymentPending, 1, false),
	} {
		_, err := bunDB.NewInsert().Model(b).Exec(ctx)
		require.NoError(t, err)
	}

	ok, err := repo.CheckIn(ctx, "paid", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckIn(ctx, "paid", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CheckIn(ctx, "pending", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	b, err := repo.GetBooking(ctx, "paid")
	require.NoError(t, err)
	assert.True(t, b.CheckedIn)
	assert.NotNil(t, b.CheckedInAt)

	_, err = repo.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestGetCheckInStats(t *testing.T) {
	bunDB := dbtest.New(t)
	repo := &db.DB{Bun: bunDB}
	ctx := context.Background()
	for _, b := range []*models.Booking{
		booking("a", models.PaymentPaid, 2, true),
		booking("b", models.PaymentPaid, 3, false),
		booking("c", models.PaymentPaid, 1, false),
		booking("d", models.PaymentPending, 4, false),
	} {
		_, err := bunDB.NewInsert().Model(b).Exec(ctx)
		require.NoError(t, err)
	}

	stats, err := repo.GetCheckInStats(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, &db.CheckInStats{
		EventID: "event-1", PaidBookings: 3, PaidTickets: 6, CheckedIn: 1, CheckedInTickets: 2,
	}, stats)

	empty, err := repo.GetCheckInStats(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, empty.PaidBookings)
}
