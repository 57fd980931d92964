package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresBranchRepository struct {
	db pgdb
}

func (r *PostgresBranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	query := `SELECT id, code, name, timezone, is_active, created_at, updated_at
	          FROM branches WHERE id = $1`

	var branch models.Branch
	err := r.db.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Code,
		&branch.Name,
		&branch.Timezone,
		&branch.IsActive,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return &branch, nil
}

func (r *PostgresBranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	query := `INSERT INTO branches (id, code, name, timezone, is_active)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		branch.ID,
		branch.Code,
		branch.Name,
		branch.Timezone,
		branch.IsActive,
	).Scan(&branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}
