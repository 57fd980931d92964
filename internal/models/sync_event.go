package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SyncEventStatus string

const (
	SyncEventAccepted  SyncEventStatus = "accepted"
	SyncEventProcessed SyncEventStatus = "processed"
	SyncEventRejected  SyncEventStatus = "rejected"
)

// SyncEvent is the idempotency ledger row for one inbound envelope.
// (EventID, DeviceID) is unique at the storage layer; rows are never deleted.
type SyncEvent struct {
	ID          uuid.UUID       `json:"id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	DeviceID    uuid.UUID       `json:"device_id"`
	UserID      uuid.UUID       `json:"user_id"`
	EventID     uuid.UUID       `json:"event_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Status      SyncEventStatus `json:"status"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
