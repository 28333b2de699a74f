//go:build integration

package database_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	affiliatedb "ms-booking/internal/affiliate/db"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booking",
				"POSTGRES_PASSWORD": "booking",
				"POSTGRES_DB":       "booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://booking:booking@%s:%s/booking?sslmode=disable", host, port.Port())
}

func TestSettlementAgainstPostgres(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	l := logger.NewWithWriter(&bytes.Buffer{}, "debug")

	runner := migrations.NewRunner(dsn, l)
	require.NoError(t, runner.Up())
	v, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
	require.NoError(t, runner.Close())

	bunDB, err := database.Connect(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 10, MaxLifetime: time.Minute}, l)
	require.NoError(t, err)
	defer bunDB.Close()

	now := time.Now().UTC()
	refCode := "AFF00001"
	rows := []interface{}{
		&models.User{ID: "aff-1", Email: "aff@example.com", Roles: []string{models.RoleAffiliate}, ReferralCode: &refCode, CreatedAt: now},
		&models.Event{
			ID: "event-1", Name: "Jazz Night", Date: now.Add(48 * time.Hour),
			Tiers:            []models.PriceTier{{Name: "Regular", Price: decimal.NewFromInt(100000), AvailableTickets: 3}},
			AvailableTickets: 3, CreatedAt: now, UpdatedAt: now,
		},
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, &models.User{
			ID: fmt.Sprintf("buyer-%d", i), Email: fmt.Sprintf("buyer%d@example.com", i),
			Roles: []string{models.RoleCustomer}, CreatedAt: now,
		}, &models.Booking{
			ID: fmt.Sprintf("b-%d", i), EventID: "event-1", UserID: fmt.Sprintf("buyer-%d", i),
			BuyerName: "Buyer", BuyerEmail: "buyer@example.com", Tickets: 1, TierName: "Regular",
			TierPrice: decimal.NewFromInt(100000), Subtotal: decimal.NewFromInt(100000),
			DiscountAmount: decimal.Zero, TotalPrice: decimal.NewFromInt(100000),
			PaymentStatus: models.PaymentPending, ReferralCodeUsed: refCode,
			CreatedAt: now, UpdatedAt: now,
		})
	}
	for _, r := range rows {
		_, err := bunDB.NewInsert().Model(r).Exec(ctx)
		require.NoError(t, err)
	}

	repo := &bookingdb.DB{Bun: bunDB}
	params := bookingdb.SettleParams{
		Update:         models.GatewayUpdate{Status: models.PaymentPaid, RawStatus: "settlement", At: now},
		CommissionRate: decimal.NewFromInt(10),
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Settle(ctx, fmt.Sprintf("b-%d", i), params)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	event, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, event.AvailableTickets)
	assert.Equal(t, 0, event.Tiers[0].AvailableTickets)

	aff := &affiliatedb.DB{Bun: bunDB}
	available, err := aff.AvailableCommissions(ctx, "aff-1")
	require.NoError(t, err)
	assert.Len(t, available, 5)

	// Settling again must not create a second commission.
	res, err := repo.Settle(ctx, "b-0", params)
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	available, err = aff.AvailableCommissions(ctx, "aff-1")
	require.NoError(t, err)
	assert.Len(t, available, 5)
}

func TestUniqueViolationOnPostgres(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	l := logger.NewWithWriter(&bytes.Buffer{}, "debug")

	runner := migrations.NewRunner(dsn, l)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	bunDB, err := database.Connect(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 2, MaxIdleConns: 2, MaxLifetime: time.Minute}, l)
	require.NoError(t, err)
	defer bunDB.Close()

	now := time.Now().UTC()
	c := &models.Coupon{ID: "c-1", Code: "SAVE50", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(1), Active: true, CreatedAt: now, UpdatedAt: now}
	_, err = bunDB.NewInsert().Model(c).Exec(ctx)
	require.NoError(t, err)

	c.ID = "c-2"
	_, err = bunDB.NewInsert().Model(c).Exec(ctx)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestCouponLimitAgainstPostgres(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	l := logger.NewWithWriter(&bytes.Buffer{}, "debug")

	runner := migrations.NewRunner(dsn, l)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	bunDB, err := database.Connect(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 4, MaxLifetime: time.Minute}, l)
	require.NoError(t, err)
	defer bunDB.Close()

	now := time.Now().UTC()
	limit := 1
	couponID := "c-1"
	rows := []interface{}{
		&models.Event{
			ID: "event-1", Name: "Jazz Night", Date: now.Add(48 * time.Hour),
			Tiers:            []models.PriceTier{{Name: "Regular", Price: decimal.NewFromInt(100000), AvailableTickets: 1}},
			AvailableTickets: 1, CreatedAt: now, UpdatedAt: now,
		},
		&models.Coupon{ID: couponID, Code: "LASTONE", DiscountType: models.DiscountFixed, DiscountValue: decimal.NewFromInt(10000), Active: true, UsageLimit: &limit, MinPurchase: decimal.Zero, CreatedAt: now, UpdatedAt: now},
	}
	for i := 0; i < 2; i++ {
		rows = append(rows, &models.Booking{
			ID: fmt.Sprintf("b-%d", i), EventID: "event-1", UserID: fmt.Sprintf("buyer-%d", i),
			BuyerName: "Buyer", BuyerEmail: "buyer@example.com", Tickets: 1, TierName: "Regular",
			TierPrice: decimal.NewFromInt(100000), Subtotal: decimal.NewFromInt(100000),
			DiscountAmount: decimal.NewFromInt(10000), TotalPrice: decimal.NewFromInt(90000),
			PaymentStatus: models.PaymentPending, CouponID: &couponID, CouponCode: "LASTONE",
			CreatedAt: now, UpdatedAt: now,
		})
	}
	for _, r := range rows {
		_, err := bunDB.NewInsert().Model(r).Exec(ctx)
		require.NoError(t, err)
	}

	repo := &bookingdb.DB{Bun: bunDB}
	params := bookingdb.SettleParams{
		Update: models.GatewayUpdate{Status: models.PaymentPaid, RawStatus: "settlement", At: now},
	}

	first, err := repo.Settle(ctx, "b-0", params)
	require.NoError(t, err)
	assert.False(t, first.CouponOverLimit)

	second, err := repo.Settle(ctx, "b-1", params)
	require.NoError(t, err)
	assert.True(t, second.Transitioned)
	assert.True(t, second.CouponOverLimit)
	assert.True(t, second.Oversold)

	b, err := repo.GetBookingByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, b.PaymentStatus)

	var coupon models.Coupon
	require.NoError(t, bunDB.NewSelect().Model(&coupon).Where("id = ?", couponID).Scan(ctx))
	assert.Equal(t, 1, coupon.TimesUsed)

	event, err := repo.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, event.AvailableTickets)
}
