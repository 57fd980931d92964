package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresWarehouseRepository struct {
	db pgdb
}

func (r *PostgresWarehouseRepository) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Warehouse, error) {
	query := `SELECT id, branch_id, name, is_primary, is_active, created_at, updated_at
	          FROM warehouses WHERE id = $1 AND branch_id = $2`

	var warehouse models.Warehouse
	err := r.db.QueryRow(ctx, query, id, branchID).Scan(
		&warehouse.ID,
		&warehouse.BranchID,
		&warehouse.Name,
		&warehouse.IsPrimary,
		&warehouse.IsActive,
		&warehouse.CreatedAt,
		&warehouse.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	return &warehouse, nil
}

func (r *PostgresWarehouseRepository) Create(ctx context.Context, warehouse *models.Warehouse) error {
	if warehouse.ID == uuid.Nil {
		warehouse.ID = uuid.New()
	}
	query := `INSERT INTO warehouses (id, branch_id, name, is_primary, is_active)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		warehouse.ID,
		warehouse.BranchID,
		warehouse.Name,
		warehouse.IsPrimary,
		warehouse.IsActive,
	).Scan(&warehouse.CreatedAt, &warehouse.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create warehouse: %w", err)
	}
	return nil
}
