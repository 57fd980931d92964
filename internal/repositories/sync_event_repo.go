package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/veloro/possync/internal/models"
)

type PostgresSyncEventRepository struct {
	db pgdb
}

func (r *PostgresSyncEventRepository) GetByEventID(ctx context.Context, eventID, deviceID uuid.UUID) (*models.SyncEvent, error) {
	query := `SELECT id, branch_id, device_id, user_id, event_id, event_type, payload,
	                 status, processed_at, created_at
	          FROM sync_events
	          WHERE event_id = $1 AND device_id = $2`

	var event models.SyncEvent
	err := r.db.QueryRow(ctx, query, eventID, deviceID).Scan(
		&event.ID,
		&event.BranchID,
		&event.DeviceID,
		&event.UserID,
		&event.EventID,
		&event.EventType,
		&event.Payload,
		&event.Status,
		&event.ProcessedAt,
		&event.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync event: %w", err)
	}
	return &event, nil
}

func (r *PostgresSyncEventRepository) Insert(ctx context.Context, event *models.SyncEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = models.SyncEventAccepted
	}
	query := `INSERT INTO sync_events
	          (id, branch_id, device_id, user_id, event_id, event_type, payload, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		event.ID,
		event.BranchID,
		event.DeviceID,
		event.UserID,
		event.EventID,
		event.EventType,
		event.Payload,
		event.Status,
	).Scan(&event.CreatedAt)

	// The unique index on (event_id, device_id) is the idempotency ledger;
	// a violation means a concurrent delivery won the race.
	if isUniqueViolation(err, "uniq_sync_events_event_device") {
		return ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("failed to insert sync event: %w", err)
	}
	return nil
}

func (r *PostgresSyncEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, status models.SyncEventStatus, processedAt time.Time) error {
	query := `UPDATE sync_events SET status = $1, processed_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, query, status, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark sync event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
