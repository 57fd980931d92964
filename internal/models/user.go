package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleCashier    UserRole = "cashier"
	RoleSupervisor UserRole = "supervisor"
	RoleAdmin      UserRole = "admin"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	BranchID     *uuid.UUID `json:"branch_id,omitempty"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
