package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// ListEvents returns events ordered by date. An empty category matches all.
func (d *DB) ListEvents(ctx context.Context, category string) ([]models.Event, error) {
	events := []models.Event{}
	q := d.Bun.NewSelect().Model(&events).OrderExpr("date ASC, id ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Scan(ctx)
	return events, err
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &event, nil
}

// UpdateEvent loads the event under a row lock, lets apply mutate it, and
// writes it back in the same transaction. Columns owned by settlement are
// written from the locked copy, so concurrent ticket sales are not lost.
func (d *DB) UpdateEvent(ctx context.Context, id string, apply func(*models.Event) error) (*models.Event, error) {
	var event models.Event
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&event).Where("id = ?", id).Limit(1)
		if tx.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			return database.NotFound(err)
		}
		if err := apply(&event); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model(&event).ExcludeColumn("created_at").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ---------------- COUPONS ----------------

func (d *DB) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
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

func (d *DB) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	_, err := d.Bun.NewInsert().Model(c).Exec(ctx)
	return err
}

// UpdateCoupon writes the editable columns of an existing coupon. times_used
// is left to settlement.
func (d *DB) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	res, err := d.Bun.NewUpdate().
		Model(c).
		Column("discount_type", "discount_value", "expires_at", "active", "usage_limit", "min_purchase", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
