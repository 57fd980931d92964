package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferDraft     TransferStatus = "draft"
	TransferApproved  TransferStatus = "approved"
	TransferCompleted TransferStatus = "completed"
)

type StockTransfer struct {
	ID                         uuid.UUID            `json:"id"`
	BranchID                   uuid.UUID            `json:"branch_id"`
	SourceWarehouseID          uuid.UUID            `json:"source_warehouse_id"`
	DestinationWarehouseID     uuid.UUID            `json:"destination_warehouse_id"`
	Reference                  string               `json:"reference"`
	Status                     TransferStatus       `json:"status"`
	RequiresSupervisorApproval bool                 `json:"requires_supervisor_approval"`
	ApprovedBy                 *uuid.UUID           `json:"approved_by,omitempty"`
	ApprovedAt                 *time.Time           `json:"approved_at,omitempty"`
	CompletedAt                *time.Time           `json:"completed_at,omitempty"`
	Notes                      string               `json:"notes"`
	Lines                      []*StockTransferLine `json:"lines,omitempty"`
	CreatedAt                  time.Time            `json:"created_at"`
	UpdatedAt                  time.Time            `json:"updated_at"`
}

type StockTransferLine struct {
	ID         uuid.UUID       `json:"id"`
	TransferID uuid.UUID       `json:"transfer_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}
