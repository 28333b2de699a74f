package analytics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/database/dbtest"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	bunDB := dbtest.New(t)
	l := logger.NewWithWriter(&bytes.Buffer{}, "debug")
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	couponID := "c-1"
	booking := func(id, event, tier string, tickets int, total, discount int64, status models.PaymentStatus, paidAt *time.Time, checkedIn bool) *models.Booking {
		b := &models.Booking{
			ID: id, EventID: event, UserID: "buyer-1", BuyerName: "Rina", BuyerEmail: "rina@example.com",
			Tickets: tickets, TierName: tier,
			TierPrice:      decimal.NewFromInt((total + discount) / int64(tickets)),
			Subtotal:       decimal.NewFromInt(total + discount),
			DiscountAmount: decimal.NewFromInt(discount),
			TotalPrice:     decimal.NewFromInt(total),
			PaymentStatus:  status, PaidAt: paidAt, CheckedIn: checkedIn,
			CreatedAt: day1, UpdatedAt: day1,
		}
		if discount > 0 {
			b.CouponID, b.CouponCode = &couponID, "SAVE50"
		}
		return b
	}

	rows := []interface{}{
		&models.User{ID: "admin-1", Email: "admin@example.com", Roles: []string{models.RoleAdmin}, CreatedAt: day1},
		booking("b1", "event-1", "Regular", 2, 200000, 50000, models.PaymentPaid, &day1, true),
		booking("b2", "event-1", "VIP", 1, 500000, 0, models.PaymentPaid, &day2, false),
		booking("b3", "event-1", "Regular", 1, 125000, 0, models.PaymentPaid, &day2, false),
		booking("b4", "event-1", "Regular", 4, 500000, 0, models.PaymentPending, nil, false),
		booking("b5", "event-2", "Regular", 3, 300000, 50000, models.PaymentPaid, &day2, false),
	}
	for _, r := range rows {
		_, err := bunDB.NewInsert().Model(r).Exec(ctx)
		require.NoError(t, err)
	}

	authz := auth.NewRoleChecker(&auth.BunRoleSource{DB: bunDB}, nil, "", l)
	return NewService(&DB{Bun: bunDB}, authz, l)
}

func TestGetEventAnalyticsCountsPaidOnly(t *testing.T) {
	s := setupService(t)
	a, err := s.GetEventAnalytics(context.Background(), "admin-1", "event-1")
	require.NoError(t, err)

	assert.Equal(t, 3, a.TotalBookings)
	assert.Equal(t, 4, a.TotalTicketsSold)
	assert.Equal(t, 2, a.CheckedIn)
	assert.True(t, decimal.NewFromInt(825000).Equal(a.TotalRevenue))
	assert.True(t, decimal.NewFromInt(875000).Equal(a.TotalBeforeDisc))
	assert.True(t, decimal.NewFromInt(50000).Equal(a.TotalDiscount))

	require.Len(t, a.DailySales, 2)
	assert.Equal(t, "2026-03-01", a.DailySales[0].Date)
	assert.Equal(t, 2, a.DailySales[0].TicketsSold)
	assert.Equal(t, "2026-03-02", a.DailySales[1].Date)
	assert.True(t, decimal.NewFromInt(625000).Equal(a.DailySales[1].Revenue))

	require.Len(t, a.SalesByTier, 2)
	assert.Equal(t, "Regular", a.SalesByTier[0].TierName)
	assert.Equal(t, 3, a.SalesByTier[0].TicketsSold)
	assert.Equal(t, "VIP", a.SalesByTier[1].TierName)
}

func TestGetBatchEventAnalytics(t *testing.T) {
	s := setupService(t)
	a, err := s.GetBatchEventAnalytics(context.Background(), "admin-1", []string{"event-1", "event-2"})
	require.NoError(t, err)
	assert.Equal(t, 4, a.TotalBookings)
	assert.Equal(t, 7, a.TotalTicketsSold)

	empty, err := s.GetBatchEventAnalytics(context.Background(), "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalBookings)
	assert.NotNil(t, empty.DailySales)
}

func TestGetEventDiscountAnalytics(t *testing.T) {
	s := setupService(t)
	d, err := s.GetEventDiscountAnalytics(context.Background(), "admin-1", "event-1")
	require.NoError(t, err)
	require.Len(t, d.DiscountUsage, 1)
	assert.Equal(t, "SAVE50", d.DiscountUsage[0].CouponCode)
	assert.Equal(t, 1, d.DiscountUsage[0].UsageCount)
	assert.True(t, decimal.NewFromInt(50000).Equal(d.DiscountUsage[0].TotalDiscount))
}

func TestGetEventBookingsFiltersAndPages(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	pending, err := s.GetEventBookings(ctx, "admin-1", "event-1", EventBookingOptions{Status: models.PaymentPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b4", pending[0].ID)

	top, err := s.GetEventBookings(ctx, "admin-1", "event-1", EventBookingOptions{SortBy: "total_price", SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.True(t, decimal.NewFromInt(500000).Equal(top[0].TotalPrice))
}

func TestAnalyticsRequireAdmin(t *testing.T) {
	s := setupService(t)
	_, err := s.GetEventAnalytics(context.Background(), "buyer-1", "event-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = s.GetEventBookings(context.Background(), "", "event-1", EventBookingOptions{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
