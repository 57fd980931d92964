package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        string     `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	DeviceID  *uuid.UUID `json:"device_id,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}
