package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StockMoveReason string

const (
	ReasonSale       StockMoveReason = "sale"
	ReasonPurchase   StockMoveReason = "purchase"
	ReasonTransfer   StockMoveReason = "transfer"
	ReasonAdjustment StockMoveReason = "adjustment"
	ReasonReturn     StockMoveReason = "return"
)

// ValidStockMoveReason reports whether r is one of the allowed reasons.
func ValidStockMoveReason(r StockMoveReason) bool {
	switch r {
	case ReasonSale, ReasonPurchase, ReasonTransfer, ReasonAdjustment, ReasonReturn:
		return true
	}
	return false
}

// StockMove is one signed inventory movement. On-hand quantity for a
// (warehouse, product) pair is the signed sum of its moves.
type StockMove struct {
	ID            uuid.UUID       `json:"id"`
	BranchID      uuid.UUID       `json:"branch_id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reason        StockMoveReason `json:"reason"`
	SourceRefType *string         `json:"source_ref_type,omitempty"`
	SourceRefID   *uuid.UUID      `json:"source_ref_id,omitempty"`
	EventID       uuid.UUID       `json:"event_id"`
	DeviceID      *uuid.UUID      `json:"device_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
