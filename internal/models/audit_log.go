package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	BranchID  *uuid.UUID      `json:"branch_id,omitempty"`
	DeviceID  *uuid.UUID      `json:"device_id,omitempty"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  *uuid.UUID      `json:"entity_id,omitempty"`
	EventID   *uuid.UUID      `json:"event_id,omitempty"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
