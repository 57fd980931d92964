package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresStockTransferRepository struct {
	db pgdb
}

func (r *PostgresStockTransferRepository) Create(ctx context.Context, transfer *models.StockTransfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	query := `INSERT INTO stock_transfers
	          (id, branch_id, source_warehouse_id, destination_warehouse_id, reference,
	           status, requires_supervisor_approval, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		transfer.ID,
		transfer.BranchID,
		transfer.SourceWarehouseID,
		transfer.DestinationWarehouseID,
		transfer.Reference,
		transfer.Status,
		transfer.RequiresSupervisorApproval,
		transfer.Notes,
	).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stock transfer: %w", err)
	}
	return nil
}

func (r *PostgresStockTransferRepository) CreateLine(ctx context.Context, line *models.StockTransferLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	query := `INSERT INTO stock_transfer_lines (id, transfer_id, product_id, quantity)
	          VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, line.ID, line.TransferID, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("failed to create transfer line: %w", err)
	}
	return nil
}

func (r *PostgresStockTransferRepository) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.StockTransfer, error) {
	query := `SELECT id, branch_id, source_warehouse_id, destination_warehouse_id, reference,
	                 status, requires_supervisor_approval, approved_by, approved_at,
	                 completed_at, notes, created_at, updated_at
	          FROM stock_transfers
	          WHERE id = $1 AND branch_id = $2`

	var transfer models.StockTransfer
	err := r.db.QueryRow(ctx, query, id, branchID).Scan(
		&transfer.ID,
		&transfer.BranchID,
		&transfer.SourceWarehouseID,
		&transfer.DestinationWarehouseID,
		&transfer.Reference,
		&transfer.Status,
		&transfer.RequiresSupervisorApproval,
		&transfer.ApprovedBy,
		&transfer.ApprovedAt,
		&transfer.CompletedAt,
		&transfer.Notes,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock transfer: %w", err)
	}

	lineQuery := `SELECT id, transfer_id, product_id, quantity
	              FROM stock_transfer_lines
	              WHERE transfer_id = $1
	              ORDER BY id`

	rows, err := r.db.Query(ctx, lineQuery, transfer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.StockTransferLine
		if err := rows.Scan(&line.ID, &line.TransferID, &line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan transfer line: %w", err)
		}
		transfer.Lines = append(transfer.Lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer lines: %w", err)
	}

	return &transfer, nil
}

func (r *PostgresStockTransferRepository) UpdateStatus(ctx context.Context, transfer *models.StockTransfer) error {
	query := `UPDATE stock_transfers
	          SET status = $1, approved_by = $2, approved_at = $3, completed_at = $4, updated_at = NOW()
	          WHERE id = $5 AND branch_id = $6
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		transfer.Status,
		transfer.ApprovedBy,
		transfer.ApprovedAt,
		transfer.CompletedAt,
		transfer.ID,
		transfer.BranchID,
	).Scan(&transfer.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update stock transfer: %w", err)
	}
	return nil
}
