package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresProductRepository struct {
	db pgdb
}

func (r *PostgresProductRepository) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Product, error) {
	query := `SELECT id, branch_id, sku, name, price, tax_rate, stock_status, is_active, created_at, updated_at
	          FROM products WHERE id = $1 AND branch_id = $2`

	var product models.Product
	err := r.db.QueryRow(ctx, query, id, branchID).Scan(
		&product.ID,
		&product.BranchID,
		&product.SKU,
		&product.Name,
		&product.Price,
		&product.TaxRate,
		&product.StockStatus,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (r *PostgresProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	query := `INSERT INTO products (id, branch_id, sku, name, price, tax_rate, stock_status, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID,
		product.BranchID,
		product.SKU,
		product.Name,
		product.Price,
		product.TaxRate,
		product.StockStatus,
		product.IsActive,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) UpdateStockStatus(ctx context.Context, product *models.Product) error {
	query := `UPDATE products
	          SET stock_status = $1, updated_at = NOW()
	          WHERE id = $2 AND branch_id = $3
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, product.StockStatus, product.ID, product.BranchID).
		Scan(&product.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update product stock status: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) LockForStock(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	// Row locks serialize concurrent on-hand aggregations for these products
	// until the surrounding transaction ends.
	query := `SELECT id FROM products
	          WHERE branch_id = $1 AND id = ANY($2)
	          ORDER BY id
	          FOR UPDATE`

	rows, err := r.db.Query(ctx, query, branchID, productIDs)
	if err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan locked product: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error locking products: %w", err)
	}
	return nil
}
