package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxOp string

const (
	OutboxUpsert OutboxOp = "upsert"
	OutboxDelete OutboxOp = "delete"
)

// SyncOutbox is one downstream-visible change. ID is the pull cursor and the
// only ordering guarantee; rows are append-only and never rewritten. The
// entity/op/entity_id columns are authoritative and Payload is purely the
// entity snapshot.
type SyncOutbox struct {
	ID        int64           `json:"id"`
	BranchID  uuid.UUID       `json:"branch_id"`
	Entity    string          `json:"entity"`
	EntityID  uuid.UUID       `json:"entity_id"`
	Op        OutboxOp        `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
