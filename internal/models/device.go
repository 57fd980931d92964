package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a POS terminal owned by exactly one branch. Devices are the
// idempotency partition for sync events: two devices may reuse the same
// client-generated event id without colliding.
type Device struct {
	ID         uuid.UUID  `json:"id"`
	BranchID   uuid.UUID  `json:"branch_id"`
	Name       string     `json:"name"`
	Identifier string     `json:"identifier"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
