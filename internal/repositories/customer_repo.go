package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresCustomerRepository struct {
	db pgdb
}

func (r *PostgresCustomerRepository) GetInBranch(ctx context.Context, id, branchID uuid.UUID) (*models.Customer, error) {
	query := `SELECT id, branch_id, name, phone, email, created_at, updated_at
	          FROM customers WHERE id = $1 AND branch_id = $2`

	var customer models.Customer
	err := r.db.QueryRow(ctx, query, id, branchID).Scan(
		&customer.ID,
		&customer.BranchID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (r *PostgresCustomerRepository) Upsert(ctx context.Context, customer *models.Customer) error {
	// The id is client-generated; the same device may re-send the customer
	// with newer details, so conflicts update in place.
	query := `INSERT INTO customers (id, branch_id, name, phone, email)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE
	          SET branch_id = EXCLUDED.branch_id,
	              name = EXCLUDED.name,
	              phone = EXCLUDED.phone,
	              email = EXCLUDED.email,
	              updated_at = NOW()
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		customer.ID,
		customer.BranchID,
		customer.Name,
		customer.Phone,
		customer.Email,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

func (r *PostgresCustomerRepository) Delete(ctx context.Context, id, branchID uuid.UUID) error {
	query := `DELETE FROM customers WHERE id = $1 AND branch_id = $2`

	result, err := r.db.Exec(ctx, query, id, branchID)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
