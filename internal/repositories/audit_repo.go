package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
)

type PostgresAuditLogRepository struct {
	db pgdb
}

func (r *PostgresAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `INSERT INTO audit_logs
	          (id, branch_id, device_id, user_id, action, entity, entity_id, event_id,
	           before_snapshot, after_snapshot, request_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.BranchID,
		entry.DeviceID,
		entry.UserID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.EventID,
		entry.Before,
		entry.After,
		entry.RequestID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}
