package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

const sourceRefStockTransfer = "inventory.stock_transfer"

type transferCreatePayload struct {
	BranchID                   uuid.UUID             `json:"branch_id"`
	SourceWarehouseID          uuid.UUID             `json:"source_warehouse_id"`
	DestinationWarehouseID     uuid.UUID             `json:"destination_warehouse_id"`
	Reference                  string                `json:"reference"`
	RequiresSupervisorApproval bool                  `json:"requires_supervisor_approval"`
	Notes                      string                `json:"notes"`
	Lines                      []transferLinePayload `json:"lines"`
}

type transferLinePayload struct {
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  *decimal.Decimal `json:"quantity"`
}

func (p *EventProcessor) handleTransferCreate(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload transferCreatePayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.SourceWarehouseID == uuid.Nil {
		missing = append(missing, "source_warehouse_id")
	}
	if payload.DestinationWarehouseID == uuid.Nil {
		missing = append(missing, "destination_warehouse_id")
	}
	if payload.Reference == "" {
		missing = append(missing, "reference")
	}
	if len(payload.Lines) == 0 {
		missing = append(missing, "lines")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	source, err := tx.Warehouses().GetInBranch(ctx, payload.SourceWarehouseID, event.BranchID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to get source warehouse: %w", err)
	}
	destination, dstErr := tx.Warehouses().GetInBranch(ctx, payload.DestinationWarehouseID, event.BranchID)
	if dstErr != nil && !errors.Is(dstErr, repositories.ErrNotFound) {
		return fmt.Errorf("failed to get destination warehouse: %w", dstErr)
	}
	if source == nil || destination == nil {
		return rejectValidation(map[string]any{"warehouse": "Source and destination warehouses must belong to branch."})
	}
	if source.ID == destination.ID {
		return rejectValidation(map[string]any{"destination_warehouse_id": "Destination must differ from source warehouse."})
	}

	transfer := &models.StockTransfer{
		BranchID:                   event.BranchID,
		SourceWarehouseID:          source.ID,
		DestinationWarehouseID:     destination.ID,
		Reference:                  payload.Reference,
		Status:                     models.TransferDraft,
		RequiresSupervisorApproval: payload.RequiresSupervisorApproval,
		Notes:                      payload.Notes,
	}
	if err := tx.Transfers().Create(ctx, transfer); err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	for _, linePayload := range payload.Lines {
		if linePayload.ProductID == uuid.Nil || linePayload.Quantity == nil {
			return rejectValidation(map[string]any{"lines": "Each line requires product_id and quantity."})
		}
		if !linePayload.Quantity.IsPositive() {
			return rejectValidation(map[string]any{"lines": "Line quantity must be positive."})
		}
		product, err := tx.Products().GetInBranch(ctx, linePayload.ProductID, event.BranchID)
		if errors.Is(err, repositories.ErrNotFound) {
			return rejectValidation(map[string]any{"product_id": fmt.Sprintf("Unknown product %s", linePayload.ProductID)})
		}
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		line := &models.StockTransferLine{
			TransferID: transfer.ID,
			ProductID:  product.ID,
			Quantity:   *linePayload.Quantity,
		}
		if err := tx.Transfers().CreateLine(ctx, line); err != nil {
			return fmt.Errorf("failed to create transfer line: %w", err)
		}
		transfer.Lines = append(transfer.Lines, line)
	}

	return emitOutbox(ctx, tx, event.BranchID, "stock_transfer", transfer.ID, models.OutboxUpsert, serializeTransfer(transfer))
}

type transferActionPayload struct {
	BranchID   uuid.UUID `json:"branch_id"`
	TransferID uuid.UUID `json:"transfer_id"`
}

func (p *EventProcessor) handleTransferApprove(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	transfer, err := p.loadTransfer(ctx, tx, event)
	if err != nil {
		return err
	}
	if transfer.Status != models.TransferDraft {
		return rejectValidation(map[string]any{"status": "Only draft transfers can be approved."})
	}

	now := time.Now()
	transfer.Status = models.TransferApproved
	transfer.ApprovedBy = &event.UserID
	transfer.ApprovedAt = &now
	if err := tx.Transfers().UpdateStatus(ctx, transfer); err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "stock_transfer", transfer.ID, models.OutboxUpsert, serializeTransfer(transfer))
}

func (p *EventProcessor) handleTransferComplete(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	transfer, err := p.loadTransfer(ctx, tx, event)
	if err != nil {
		return err
	}
	if transfer.Status != models.TransferApproved {
		return rejectValidation(map[string]any{"status": "Only approved transfers can be completed."})
	}

	// Lock the products before aggregating on-hand quantities so two
	// concurrent completions cannot both pass the availability check.
	productIDs := make([]uuid.UUID, 0, len(transfer.Lines))
	for _, line := range transfer.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	if err := tx.Products().LockForStock(ctx, event.BranchID, productIDs); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}

	var shortages []map[string]any
	for _, line := range transfer.Lines {
		available, err := tx.StockMoves().OnHand(ctx, event.BranchID, transfer.SourceWarehouseID, line.ProductID)
		if err != nil {
			return fmt.Errorf("failed to compute on-hand quantity: %w", err)
		}
		if available.LessThan(line.Quantity) {
			shortages = append(shortages, map[string]any{
				"product_id": line.ProductID.String(),
				"available":  available.String(),
				"required":   line.Quantity.String(),
			})
		}
	}
	if len(shortages) > 0 {
		return rejectValidation(map[string]any{"shortages": shortages})
	}

	refType := sourceRefStockTransfer
	for _, line := range transfer.Lines {
		outMove := &models.StockMove{
			BranchID:      event.BranchID,
			WarehouseID:   transfer.SourceWarehouseID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity.Neg(),
			Reason:        models.ReasonTransfer,
			SourceRefType: &refType,
			SourceRefID:   &transfer.ID,
			EventID:       event.EventID,
			DeviceID:      &event.DeviceID,
		}
		if err := tx.StockMoves().Create(ctx, outMove); err != nil {
			return fmt.Errorf("failed to create outbound stock move: %w", err)
		}
		inMove := &models.StockMove{
			BranchID:      event.BranchID,
			WarehouseID:   transfer.DestinationWarehouseID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Reason:        models.ReasonTransfer,
			SourceRefType: &refType,
			SourceRefID:   &transfer.ID,
			EventID:       event.EventID,
			DeviceID:      &event.DeviceID,
		}
		if err := tx.StockMoves().Create(ctx, inMove); err != nil {
			return fmt.Errorf("failed to create inbound stock move: %w", err)
		}
	}

	now := time.Now()
	transfer.Status = models.TransferCompleted
	transfer.CompletedAt = &now
	if err := tx.Transfers().UpdateStatus(ctx, transfer); err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "stock_transfer", transfer.ID, models.OutboxUpsert, serializeTransfer(transfer))
}

func (p *EventProcessor) loadTransfer(ctx context.Context, tx repositories.Store, event *models.SyncEvent) (*models.StockTransfer, error) {
	var payload transferActionPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return nil, err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.TransferID == uuid.Nil {
		missing = append(missing, "transfer_id")
	}
	if err := requireFields(missing); err != nil {
		return nil, err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return nil, err
	}

	transfer, err := tx.Transfers().GetInBranch(ctx, payload.TransferID, event.BranchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, rejectValidation(map[string]any{"transfer_id": "Transfer not found."})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return transfer, nil
}

func serializeTransfer(transfer *models.StockTransfer) map[string]any {
	lines := make([]map[string]any, 0, len(transfer.Lines))
	for _, line := range transfer.Lines {
		lines = append(lines, map[string]any{
			"id":       line.ID,
			"product":  line.ProductID,
			"quantity": line.Quantity,
		})
	}
	return map[string]any{
		"id":                           transfer.ID,
		"branch":                       transfer.BranchID,
		"source_warehouse":             transfer.SourceWarehouseID,
		"destination_warehouse":        transfer.DestinationWarehouseID,
		"reference":                    transfer.Reference,
		"status":                       transfer.Status,
		"requires_supervisor_approval": transfer.RequiresSupervisorApproval,
		"approved_by":                  transfer.ApprovedBy,
		"approved_at":                  transfer.ApprovedAt,
		"completed_at":                 transfer.CompletedAt,
		"notes":                        transfer.Notes,
		"lines":                        lines,
	}
}
