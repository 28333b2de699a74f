package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/utils"
)

const referralCodeAttempts = 5

type DB struct {
	Bun *bun.DB
}

// ---------------- CATALOG LOOKUPS ----------------

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &event, nil
}

// GetCouponByCode matches case-insensitively on the trimmed code.
func (d *DB) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ?", models.NormalizeCouponCode(code)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &coupon, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &user, nil
}

func (d *DB) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return userByReferralCode(ctx, d.Bun, code)
}

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	return err
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return bookingByID(ctx, d.Bun, id)
}

func (d *DB) UpdatePaymentToken(ctx context.Context, id string, token *models.PaymentToken) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_token = ?", token.Token).
		Set("payment_redirect_url = ?", token.RedirectURL).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkFailed is used when no checkout token could be obtained.
func (d *DB) MarkFailed(ctx context.Context, id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_status = ?", models.PaymentFailed).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("payment_status = ?", models.PaymentPending).
		Exec(ctx)
	return err
}

// UpdatePaymentStatus records a non-paid gateway outcome. Paid bookings are
// never downgraded; changed is false when the row was already paid.
func (d *DB) UpdatePaymentStatus(ctx context.Context, id string, u models.GatewayUpdate) (changed bool, err error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_status = ?", u.Status).
		Set("gateway_transaction_id = ?", u.TransactionID).
		Set("gateway_status = ?", u.RawStatus).
		Set("payment_type = ?", u.PaymentType).
		Set("updated_at = ?", u.At).
		Where("id = ?", id).
		Where("payment_status <> ?", models.PaymentPaid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) SetTicketPDFURL(ctx context.Context, id, url string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("ticket_pdf_url = ?", url).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- SETTLEMENT ----------------

type SettleParams struct {
	Update         models.GatewayUpdate
	CommissionRate decimal.Decimal
}

type SettleResult struct {
	Booking      *models.Booking
	Transitioned bool
	ReferralCode string
	Commission   *models.Commission
	// Oversold is set when inventory had to be clamped at zero.
	Oversold bool
	// CouponOverLimit is set when the coupon had no uses left at payment.
	CouponOverLimit bool
}

// Settle moves a booking to paid and applies every side effect of the
// payment in one transaction. A booking that is already paid is returned
// unchanged with Transitioned=false.
func (d *DB) Settle(ctx context.Context, id string, p SettleParams) (*SettleResult, error) {
	result := &SettleResult{}

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("payment_status = ?", models.PaymentPaid).
			Set("gateway_transaction_id = ?", p.Update.TransactionID).
			Set("gateway_status = ?", p.Update.RawStatus).
			Set("payment_type = ?", p.Update.PaymentType).
			Set("paid_at = ?", p.Update.At).
			Set("updated_at = ?", p.Update.At).
			Where("id = ?", id).
			Where("payment_status <> ?", models.PaymentPaid).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark booking paid: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		booking, err := bookingByID(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Booking = booking
		if n == 0 {
			return nil
		}
		result.Transitioned = true

		code, err := ensureReferralCode(ctx, tx, booking.UserID)
		if err != nil {
			return err
		}
		if code != "" {
			booking.ReferralCodeGenerated = code
			result.ReferralCode = code
			if _, err := tx.NewUpdate().
				Model((*models.Booking)(nil)).
				Set("referral_code_generated = ?", code).
				Where("id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("record referral code: %w", err)
			}
		}

		oversold, err := consumeInventory(ctx, tx, booking)
		if err != nil {
			return err
		}
		result.Oversold = oversold

		if booking.CouponID != nil {
			counted, err := countCouponUse(ctx, tx, *booking.CouponID, p.Update.At)
			if err != nil {
				return err
			}
			result.CouponOverLimit = !counted
		}

		commission, err := createCommission(ctx, tx, booking, p.CommissionRate, p.Update.At)
		if err != nil {
			return err
		}
		result.Commission = commission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ensureReferralCode returns the buyer's referral code, assigning one if the
// buyer has none. Buyers without a users row get no code.
func ensureReferralCode(ctx context.Context, tx bun.IDB, userID string) (string, error) {
	var user models.User
	err := tx.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load buyer: %w", err)
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for i := 0; i < referralCodeAttempts; i++ {
		code := utils.GenerateReferralCode()
		taken, err := tx.NewSelect().Model((*models.User)(nil)).Where("referral_code = ?", code).Exists(ctx)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if taken {
			continue
		}
		if _, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("referral_code = ?", code).
			Where("id = ?", userID).
			Where("referral_code IS NULL OR referral_code = ''").
			Exec(ctx); err != nil {
			return "", fmt.Errorf("assign referral code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("no free referral code after %d attempts", referralCodeAttempts)
}

func consumeInventory(ctx context.Context, tx bun.Tx, b *models.Booking) (oversold bool, err error) {
	var event models.Event
	q := tx.NewSelect().Model(&event).Where("id = ?", b.EventID).Limit(1)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("load event: %w", err)
	}

	enough := event.ConsumeTickets(b.TierName, b.Tickets)
	event.UpdatedAt = time.Now().UTC()
	if _, err := tx.NewUpdate().
		Model(&event).
		Column("tiers", "available_tickets", "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return false, fmt.Errorf("decrement inventory: %w", err)
	}
	return !enough, nil
}

// countCouponUse records one use of a coupon. It reports false, without
// writing, when the usage limit is already reached.
func countCouponUse(ctx context.Context, tx bun.IDB, couponID string, at time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("times_used = times_used + 1").
		Set("updated_at = ?", at).
		Where("id = ?", couponID).
		Where("(usage_limit IS NULL OR times_used < usage_limit)").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("increment coupon usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// createCommission credits the affiliate whose code the buyer used. Self
// referrals and unknown codes earn nothing.
func createCommission(ctx context.Context, tx bun.IDB, b *models.Booking, rate decimal.Decimal, at time.Time) (*models.Commission, error) {
	if b.ReferralCodeUsed == "" {
		return nil, nil
	}
	affiliate, err := userByReferralCode(ctx, tx, b.ReferralCodeUsed)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve referral code: %w", err)
	}
	if affiliate.ID == b.UserID {
		return nil, nil
	}

	amount := pricing.Commission(b.TotalPrice, rate)
	if !amount.IsPositive() {
		return nil, nil
	}

	c := &models.Commission{
		ID:              utils.NewID(),
		AffiliateUserID: affiliate.ID,
		BookingID:       b.ID,
		Amount:          amount,
		Status:          models.CommissionPending,
		CreatedAt:       at,
	}
	if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create commission: %w", err)
	}
	return c, nil
}

func bookingByID(ctx context.Context, idb bun.IDB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := idb.NewSelect().Model(&booking).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &booking, nil
}

func userByReferralCode(ctx context.Context, idb bun.IDB, code string) (*models.User, error) {
	var user models.User
	err := idb.NewSelect().Model(&user).Where("referral_code = ?", code).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &user, nil
}
