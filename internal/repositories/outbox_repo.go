package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
)

type PostgresOutboxRepository struct {
	db pgdb
}

func (r *PostgresOutboxRepository) Append(ctx context.Context, record *models.SyncOutbox) error {
	// The BIGSERIAL assigns the cursor; application code never chooses ids.
	query := `INSERT INTO sync_outbox (branch_id, entity, entity_id, op, payload)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		record.BranchID,
		record.Entity,
		record.EntityID,
		record.Op,
		record.Payload,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append outbox record: %w", err)
	}
	return nil
}

func (r *PostgresOutboxRepository) ListAfter(ctx context.Context, branchID uuid.UUID, cursor int64, limit int) ([]*models.SyncOutbox, bool, error) {
	// Fetch one past the page to learn has_more without a second query.
	query := `SELECT id, branch_id, entity, entity_id, op, payload, created_at
	          FROM sync_outbox
	          WHERE branch_id = $1 AND id > $2
	          ORDER BY id ASC
	          LIMIT $3`

	rows, err := r.db.Query(ctx, query, branchID, cursor, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncOutbox
	for rows.Next() {
		var record models.SyncOutbox
		err := rows.Scan(
			&record.ID,
			&record.BranchID,
			&record.Entity,
			&record.EntityID,
			&record.Op,
			&record.Payload,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating outbox: %w", err)
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}
	return records, hasMore, nil
}

func (r *PostgresOutboxRepository) LatestID(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(MAX(id), 0) FROM sync_outbox`

	var latest int64
	if err := r.db.QueryRow(ctx, query).Scan(&latest); err != nil {
		return 0, fmt.Errorf("failed to get latest outbox id: %w", err)
	}
	return latest, nil
}
