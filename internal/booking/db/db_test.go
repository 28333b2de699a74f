package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/database/dbtest"
	"ms-booking/internal/models"
)

func strPtr(s string) *string { return &s }

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	bunDB := dbtest.New(t)
	return &db.DB{Bun: bunDB}, bunDB
}

func seed(t *testing.T, bunDB *bun.DB, rows ...interface{}) {
	t.Helper()
	for _, r := range rows {
		_, err := bunDB.NewInsert().Model(r).Exec(context.Background())
		require.NoError(t, err)
	}
}

func testEvent() *models.Event {
	now := time.Now().UTC()
	return &models.Event{
		ID:   "event-1",
		Name: "Jazz Night",
		Date: now.Add(72 * time.Hour),
		Tiers: []models.PriceTier{
			{Name: "Regular", Price: decimal.NewFromInt(125000), AvailableTickets: 10},
			{Name: "VIP", Price: decimal.NewFromInt(300000), AvailableTickets: 1},
		},
		AvailableTickets: 11,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func testBooking(id string) *models.Booking {
	now := time.Now().UTC()
	return &models.Booking{
		ID:             id,
		EventID:        "event-1",
		UserID:         "buyer-1",
		BuyerName:      "Rina",
		BuyerEmail:     "rina@example.com",
		Tickets:        2,
		TierName:       "Regular",
		TierPrice:      decimal.NewFromInt(125000),
		Subtotal:       decimal.NewFromInt(250000),
		DiscountAmount: decimal.Zero,
		TotalPrice:     decimal.NewFromInt(250000),
		PaymentStatus:  models.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func paidUpdate() db.SettleParams {
	return db.SettleParams{
		Update: models.GatewayUpdate{
			Status:        models.PaymentPaid,
			TransactionID: "tx-1",
			RawStatus:     "settlement",
			PaymentType:   "bank_transfer",
			At:            time.Now().UTC(),
		},
		CommissionRate: decimal.NewFromInt(10),
	}
}

func TestGetCouponByCodeNormalizes(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	now := time.Now().UTC()
	seed(t, bunDB, &models.Coupon{
		ID: "c-1", Code: "SAVE50", DiscountType: models.DiscountFixed,
		DiscountValue: decimal.NewFromInt(50000), Active: true,
		MinPurchase: decimal.Zero, CreatedAt: now, UpdatedAt: now,
	})

	c, err := repo.GetCouponByCode(context.Background(), "  save50 ")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)

	_, err = repo.GetCouponByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestUpdatePaymentStatusNeverDowngradesPaid(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	ctx := context.Background()
	paid := testBooking("b-paid")
	paid.PaymentStatus = models.PaymentPaid
	seed(t, bunDB, paid, testBooking("b-pending"))

	u := models.GatewayUpdate{Status: models.PaymentExpired, RawStatus: "expire", At: time.Now().UTC()}

	changed, err := repo.UpdatePaymentStatus(ctx, "b-paid", u)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.UpdatePaymentStatus(ctx, "b-pending", u)
	require.NoError(t, err)
	assert.True(t, changed)

	b, err := repo.GetBookingByID(ctx, "b-pending")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentExpired, b.PaymentStatus)
	assert.Equal(t, "expire", b.GatewayStatus)
}

func TestMarkFailedOnlyTouchesPending(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	ctx := context.Background()
	seed(t, bunDB, testBooking("b-1"))

	require.NoError(t, repo.UpdatePaymentToken(ctx, "b-1", &models.PaymentToken{Token: "snap-token", RedirectURL: "https://pay"}))
	require.NoError(t, repo.MarkFailed(ctx, "b-1"))

	b, err := repo.GetBookingByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, b.PaymentStatus)
	assert.Equal(t, "snap-token", b.PaymentToken)
}

func TestSettleAppliesAllSideEffects(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	booking := testBooking("b-1")
	booking.CouponID = strPtr("c-1")
	booking.CouponCode = "SAVE50"
	booking.ReferralCodeUsed = "AFFCODE1"
	seed(t, bunDB,
		testEvent(),
		&models.User{ID: "buyer-1", Email: "rina@example.com", FullName: "Rina", Roles: []string{models.RoleCustomer}, CreatedAt: now},
		&models.User{ID: "aff-1", Email: "aff@example.com", FullName: "Aff", Roles: []string{models.RoleAffiliate}, ReferralCode: strPtr("AFFCODE1"), CreatedAt: now},
		&models.Coupon{ID: "c-1", Code: "SAVE50", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(50000), Active: true, TimesUsed: 3, MinPurchase: decimal.Zero, CreatedAt: now, UpdatedAt: now},
		booking,
	)

	res, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	assert.False(t, res.Oversold)
	assert.Len(t, res.ReferralCode, 8)

	got, err := repo.GetBookingByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.NotNil(t, got.PaidAt)
	assert.Equal(t, res.ReferralCode, got.ReferralCodeGenerated)

	event, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 8, event.Tiers[0].AvailableTickets)
	assert.Equal(t, 9, event.AvailableTickets)

	var coupon models.Coupon
	require.NoError(t, bunDB.NewSelect().Model(&coupon).Where("id = ?", "c-1").Scan(ctx))
	assert.Equal(t, 4, coupon.TimesUsed)

	buyer, err := repo.GetUserByID(ctx, "buyer-1")
	require.NoError(t, err)
	require.NotNil(t, buyer.ReferralCode)
	assert.Equal(t, res.ReferralCode, *buyer.ReferralCode)

	require.NotNil(t, res.Commission)
	assert.Equal(t, "aff-1", res.Commission.AffiliateUserID)
	assert.True(t, decimal.NewFromInt(25000).Equal(res.Commission.Amount))

	again, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	assert.False(t, again.Transitioned)

	event, err = repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 9, event.AvailableTickets)

	require.NoError(t, bunDB.NewSelect().Model(&coupon).Where("id = ?", "c-1").Scan(ctx))
	assert.Equal(t, 4, coupon.TimesUsed)

	count, err := bunDB.NewSelect().Model((*models.Commission)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSettleKeepsExistingReferralCodeAndSkipsSelfReferral(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	booking := testBooking("b-1")
	booking.ReferralCodeUsed = "MINE0001"
	seed(t, bunDB,
		testEvent(),
		&models.User{ID: "buyer-1", Email: "rina@example.com", FullName: "Rina", Roles: []string{models.RoleAffiliate}, ReferralCode: strPtr("MINE0001"), CreatedAt: now},
		booking,
	)

	res, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.Equal(t, "MINE0001", res.ReferralCode)
	assert.Nil(t, res.Commission)
}

func TestSettleClampsOversoldInventory(t *testing.T) {
	repo, bunDB := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("b-1")
	booking.TierName = "VIP"
	booking.Tickets = 3
	seed(t, bunDB, testEvent(), booking)

	res, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	assert.True(t, res.Oversold)
	assert.Empty(t, res.ReferralCode)

	event, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, event.Tiers[1].AvailableTickets)
	assert.Equal(t, 8, event.AvailableTickets)
}

func TestSettleUnknownBooking(t *testing.T) {
	repo, _ := setupTestDB(t)
	_, err := repo.Settle(context.Background(), "missing", paidUpdate())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSettleStopsCountingCouponAtUsageLimit(t *testing.T) {
	bunDB := dbtest.NewMigrated(t)
	repo := &db.DB{Bun: bunDB}
	ctx := context.Background()
	now := time.Now().UTC()

	limit := 1
	first, second := testBooking("b-1"), testBooking("b-2")
	for _, b := range []*models.Booking{first, second} {
		b.CouponID = strPtr("c-1")
		b.CouponCode = "LASTONE"
		b.DiscountAmount = decimal.NewFromInt(50000)
		b.TotalPrice = decimal.NewFromInt(200000)
	}
	seed(t, bunDB,
		testEvent(),
		&models.Coupon{ID: "c-1", Code: "LASTONE", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(50000), Active: true, UsageLimit: &limit, MinPurchase: decimal.Zero, CreatedAt: now, UpdatedAt: now},
		first, second,
	)

	res, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	assert.False(t, res.CouponOverLimit)

	res, err = repo.Settle(ctx, "b-2", paidUpdate())
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
	assert.True(t, res.CouponOverLimit)

	got, err := repo.GetBookingByID(ctx, "b-2")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	var coupon models.Coupon
	require.NoError(t, bunDB.NewSelect().Model(&coupon).Where("id = ?", "c-1").Scan(ctx))
	assert.Equal(t, 1, coupon.TimesUsed)

	event, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 6, event.Tiers[0].AvailableTickets)
	assert.Equal(t, 7, event.AvailableTickets)
}

func TestSettleClampsInventoryUnderSchemaConstraints(t *testing.T) {
	bunDB := dbtest.NewMigrated(t)
	repo := &db.DB{Bun: bunDB}
	ctx := context.Background()

	event := testEvent()
	event.Tiers = event.Tiers[1:]
	event.AvailableTickets = 1
	booking := testBooking("b-1")
	booking.TierName = "VIP"
	booking.Tickets = 3
	seed(t, bunDB, event, booking)

	res, err := repo.Settle(ctx, "b-1", paidUpdate())
	require.NoError(t, err)
	assert.True(t, res.Oversold)

	got, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Tiers[0].AvailableTickets)
	assert.Equal(t, 0, got.AvailableTickets)
}
