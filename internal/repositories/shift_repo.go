package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresCashShiftRepository struct {
	db pgdb
}

func (r *PostgresCashShiftRepository) GetOpenShift(ctx context.Context, branchID, deviceID, cashierID uuid.UUID) (*models.CashShift, error) {
	query := `SELECT id, branch_id, cashier_id, device_id, opened_at, closed_at,
	                 opening_amount, expected_amount, variance
	          FROM cash_shifts
	          WHERE branch_id = $1 AND device_id = $2 AND cashier_id = $3 AND closed_at IS NULL
	          ORDER BY opened_at DESC
	          LIMIT 1`

	var shift models.CashShift
	err := r.db.QueryRow(ctx, query, branchID, deviceID, cashierID).Scan(
		&shift.ID,
		&shift.BranchID,
		&shift.CashierID,
		&shift.DeviceID,
		&shift.OpenedAt,
		&shift.ClosedAt,
		&shift.OpeningAmount,
		&shift.ExpectedAmount,
		&shift.Variance,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open shift: %w", err)
	}
	return &shift, nil
}

func (r *PostgresCashShiftRepository) Create(ctx context.Context, shift *models.CashShift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	query := `INSERT INTO cash_shifts
	          (id, branch_id, cashier_id, device_id, opening_amount, closed_at, expected_amount, variance)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING opened_at`

	err := r.db.QueryRow(ctx, query,
		shift.ID,
		shift.BranchID,
		shift.CashierID,
		shift.DeviceID,
		shift.OpeningAmount,
		shift.ClosedAt,
		shift.ExpectedAmount,
		shift.Variance,
	).Scan(&shift.OpenedAt)
	if err != nil {
		return fmt.Errorf("failed to create cash shift: %w", err)
	}
	return nil
}
