package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

// sourceRefSyncEvent marks stock moves created directly from a sync event,
// as opposed to moves derived from a transfer completion.
const sourceRefSyncEvent = "sync.event"

type stockAdjustPayload struct {
	BranchID    uuid.UUID              `json:"branch_id"`
	WarehouseID uuid.UUID              `json:"warehouse_id"`
	ProductID   uuid.UUID              `json:"product_id"`
	Quantity    *decimal.Decimal       `json:"quantity"`
	Reason      models.StockMoveReason `json:"reason"`
}

func (p *EventProcessor) handleStockAdjust(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload stockAdjustPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.WarehouseID == uuid.Nil {
		missing = append(missing, "warehouse_id")
	}
	if payload.ProductID == uuid.Nil {
		missing = append(missing, "product_id")
	}
	if payload.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if payload.Reason == "" {
		missing = append(missing, "reason")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	if payload.Quantity.IsZero() {
		return rejectValidation(map[string]any{"quantity": "Quantity must be non-zero."})
	}

	product, err := tx.Products().GetInBranch(ctx, payload.ProductID, event.BranchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return rejectValidation(map[string]any{"product_id": "Product not found in branch."})
	}
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsActive {
		return rejectForbidden(map[string]any{"product_id": "Product is inactive."})
	}

	warehouse, err := tx.Warehouses().GetInBranch(ctx, payload.WarehouseID, event.BranchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return rejectForbidden(map[string]any{"warehouse_id": "Warehouse is not in branch."})
	}
	if err != nil {
		return fmt.Errorf("failed to get warehouse: %w", err)
	}

	if !models.ValidStockMoveReason(payload.Reason) {
		return rejectValidation(map[string]any{"reason": "Invalid reason."})
	}

	refType := sourceRefSyncEvent
	move := &models.StockMove{
		BranchID:      event.BranchID,
		WarehouseID:   warehouse.ID,
		ProductID:     product.ID,
		Quantity:      *payload.Quantity,
		Reason:        payload.Reason,
		SourceRefType: &refType,
		SourceRefID:   &event.ID,
		EventID:       event.EventID,
		DeviceID:      &event.DeviceID,
	}
	if err := tx.StockMoves().Create(ctx, move); err != nil {
		return fmt.Errorf("failed to create stock move: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "stock_move", move.ID, models.OutboxUpsert, map[string]any{
		"id":           move.ID,
		"warehouse_id": move.WarehouseID,
		"product_id":   move.ProductID,
		"quantity":     move.Quantity,
		"reason":       move.Reason,
		"event_id":     move.EventID,
	})
}

type stockStatusSetPayload struct {
	BranchID    uuid.UUID `json:"branch_id"`
	ProductID   uuid.UUID `json:"product_id"`
	StockStatus string    `json:"stock_status"`
}

func (p *EventProcessor) handleProductStockStatusSet(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload stockStatusSetPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.ProductID == uuid.Nil {
		missing = append(missing, "product_id")
	}
	if payload.StockStatus == "" {
		missing = append(missing, "stock_status")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	product, err := tx.Products().GetInBranch(ctx, payload.ProductID, event.BranchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return rejectValidation(map[string]any{"product_id": "Product not found in branch."})
	}
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}

	product.StockStatus = payload.StockStatus
	if err := tx.Products().UpdateStockStatus(ctx, product); err != nil {
		return fmt.Errorf("failed to update stock status: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "product", product.ID, models.OutboxUpsert, map[string]any{
		"id":           product.ID,
		"sku":          product.SKU,
		"name":         product.Name,
		"price":        product.Price,
		"stock_status": product.StockStatus,
		"updated_at":   product.UpdatedAt,
	})
}
