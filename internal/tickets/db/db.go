package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &booking, nil
}

// CheckIn flips the flag only for a paid booking that is not yet checked in.
// It reports whether this call was the one that did it.
func (d *DB) CheckIn(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("checked_in = ?", false).
		Where("payment_status = ?", models.PaymentPaid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
