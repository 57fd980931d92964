package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashShift is a cashier's till session on one device. A shift is open while
// ClosedAt is nil; invoice creation requires an open shift for the
// (branch, device, cashier) triple.
type CashShift struct {
	ID             uuid.UUID        `json:"id"`
	BranchID       uuid.UUID        `json:"branch_id"`
	CashierID      uuid.UUID        `json:"cashier_id"`
	DeviceID       uuid.UUID        `json:"device_id"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	OpeningAmount  decimal.Decimal  `json:"opening_amount"`
	ExpectedAmount *decimal.Decimal `json:"expected_amount,omitempty"`
	Variance       *decimal.Decimal `json:"variance,omitempty"`
}
