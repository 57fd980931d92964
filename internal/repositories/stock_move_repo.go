package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
)

type PostgresStockMoveRepository struct {
	db pgdb
}

func (r *PostgresStockMoveRepository) Create(ctx context.Context, move *models.StockMove) error {
	if move.ID == uuid.Nil {
		move.ID = uuid.New()
	}
	query := `INSERT INTO stock_moves
	          (id, branch_id, warehouse_id, product_id, quantity, reason,
	           source_ref_type, source_ref_id, event_id, device_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		move.ID,
		move.BranchID,
		move.WarehouseID,
		move.ProductID,
		move.Quantity,
		move.Reason,
		move.SourceRefType,
		move.SourceRefID,
		move.EventID,
		move.DeviceID,
	).Scan(&move.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stock move: %w", err)
	}
	return nil
}

func (r *PostgresStockMoveRepository) OnHand(ctx context.Context, branchID, warehouseID, productID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(quantity), 0)
	          FROM stock_moves
	          WHERE branch_id = $1 AND warehouse_id = $2 AND product_id = $3`

	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, branchID, warehouseID, productID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute on-hand quantity: %w", err)
	}
	return total, nil
}

func (r *PostgresStockMoveRepository) CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM stock_moves WHERE event_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stock moves: %w", err)
	}
	return count, nil
}
