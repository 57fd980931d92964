package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresDeviceRepository struct {
	db pgdb
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Device, error) {
	query := `SELECT id, branch_id, name, identifier, last_seen_at, is_active, created_at, updated_at
	          FROM devices
	          WHERE id = $1`

	var device models.Device
	err := r.db.QueryRow(ctx, query, id).Scan(
		&device.ID,
		&device.BranchID,
		&device.Name,
		&device.Identifier,
		&device.LastSeenAt,
		&device.IsActive,
		&device.CreatedAt,
		&device.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

func (r *PostgresDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	query := `INSERT INTO devices (id, branch_id, name, identifier, is_active)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		device.ID,
		device.BranchID,
		device.Name,
		device.Identifier,
		device.IsActive,
	).Scan(&device.CreatedAt, &device.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *PostgresDeviceRepository) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE devices
	          SET last_seen_at = NOW(), updated_at = NOW()
	          WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
