package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/database"
	"ms-booking/internal/models"
)

var (
	// ErrClaimConflict means a commission was claimed by someone else between
	// selection and linking.
	ErrClaimConflict    = errors.New("commission already claimed")
	ErrAlreadyProcessed = errors.New("withdrawal already processed")
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &user, nil
}

// ---------------- COMMISSIONS ----------------

// AvailableCommissions lists pending commissions not tied to any withdrawal,
// oldest first.
func (d *DB) AvailableCommissions(ctx context.Context, affiliateID string) ([]models.Commission, error) {
	var commissions []models.Commission
	err := d.Bun.NewSelect().
		Model(&commissions).
		Where("affiliate_user_id = ?", affiliateID).
		Where("status = ?", models.CommissionPending).
		Where("withdrawal_request_id IS NULL").
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	return commissions, err
}

func (d *DB) ListCommissions(ctx context.Context, affiliateID string) ([]models.Commission, error) {
	commissions := []models.Commission{}
	err := d.Bun.NewSelect().
		Model(&commissions).
		Where("affiliate_user_id = ?", affiliateID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return commissions, err
}

// ---------------- WITHDRAWALS ----------------

// CreateWithdrawal inserts the request and links the claimed commissions in
// one transaction. If any commission was claimed concurrently nothing is
// written and ErrClaimConflict is returned.
func (d *DB) CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest, commissionIDs []string) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(w).Exec(ctx); err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}

		res, err := tx.NewUpdate().
			Model((*models.Commission)(nil)).
			Set("status = ?", models.CommissionProcessingWithdrawal).
			Set("withdrawal_request_id = ?", w.ID).
			Where("id IN (?)", bun.In(commissionIDs)).
			Where("withdrawal_request_id IS NULL").
			Where("status = ?", models.CommissionPending).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("link commissions: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(n) != len(commissionIDs) {
			return ErrClaimConflict
		}
		return nil
	})
}

func (d *DB) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return withdrawalByID(ctx, d.Bun, id)
}

// ListWithdrawals returns every request when affiliateID is empty.
func (d *DB) ListWithdrawals(ctx context.Context, affiliateID string) ([]models.WithdrawalRequest, error) {
	withdrawals := []models.WithdrawalRequest{}
	q := d.Bun.NewSelect().Model(&withdrawals).OrderExpr("created_at DESC")
	if affiliateID != "" {
		q = q.Where("affiliate_user_id = ?", affiliateID)
	}
	err := q.Scan(ctx)
	return withdrawals, err
}

type ProcessParams struct {
	Action  models.WithdrawalAction
	AdminID string
	Notes   string
	At      time.Time
}

// ProcessWithdrawal approves or rejects a pending request together with its
// linked commissions. Approving pays them; rejecting returns them to the pool.
func (d *DB) ProcessWithdrawal(ctx context.Context, id string, p ProcessParams) (*models.WithdrawalRequest, error) {
	status := models.WithdrawalApproved
	if p.Action == models.ActionReject {
		status = models.WithdrawalRejected
	}

	var out *models.WithdrawalRequest
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.WithdrawalRequest)(nil)).
			Set("status = ?", status).
			Set("processed_by = ?", p.AdminID).
			Set("processed_at = ?", p.At).
			Set("admin_notes = ?", p.Notes).
			Set("updated_at = ?", p.At).
			Where("id = ?", id).
			Where("status = ?", models.WithdrawalPending).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update withdrawal: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := withdrawalByID(ctx, tx, id); err != nil {
				return err
			}
			return ErrAlreadyProcessed
		}

		q := tx.NewUpdate().Model((*models.Commission)(nil)).Where("withdrawal_request_id = ?", id)
		if status == models.WithdrawalApproved {
			q = q.Set("status = ?", models.CommissionPaid).Set("paid_at = ?", p.At)
		} else {
			q = q.Set("status = ?", models.CommissionPending).Set("withdrawal_request_id = NULL")
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("update linked commissions: %w", err)
		}

		out, err = withdrawalByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func withdrawalByID(ctx context.Context, idb bun.IDB, id string) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := idb.NewSelect().Model(&w).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &w, nil
}
