package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

type customerUpsertPayload struct {
	BranchID   uuid.UUID `json:"branch_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Phone      *string   `json:"phone"`
	Email      *string   `json:"email"`
}

func (p *EventProcessor) handleCustomerUpsert(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload customerUpsertPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.CustomerID == uuid.Nil {
		missing = append(missing, "customer_id")
	}
	if payload.Name == "" {
		missing = append(missing, "name")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	customer := &models.Customer{
		ID:       payload.CustomerID,
		BranchID: event.BranchID,
		Name:     payload.Name,
		Phone:    payload.Phone,
		Email:    payload.Email,
	}
	if err := tx.Customers().Upsert(ctx, customer); err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "customer", customer.ID, models.OutboxUpsert, map[string]any{
		"id":    customer.ID,
		"name":  customer.Name,
		"phone": customer.Phone,
		"email": customer.Email,
	})
}

type customerDeletePayload struct {
	BranchID   uuid.UUID `json:"branch_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

func (p *EventProcessor) handleCustomerDelete(ctx context.Context, tx repositories.Store, event *models.SyncEvent) error {
	var payload customerDeletePayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return err
	}

	var missing []string
	if payload.BranchID == uuid.Nil {
		missing = append(missing, "branch_id")
	}
	if payload.CustomerID == uuid.Nil {
		missing = append(missing, "customer_id")
	}
	if err := requireFields(missing); err != nil {
		return err
	}
	if err := checkBranchScope(payload.BranchID, event); err != nil {
		return err
	}

	err := tx.Customers().Delete(ctx, payload.CustomerID, event.BranchID)
	if errors.Is(err, repositories.ErrNotFound) {
		return rejectValidation(map[string]any{"customer_id": "Customer not found in branch."})
	}
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	return emitOutbox(ctx, tx, event.BranchID, "customer", payload.CustomerID, models.OutboxDelete, map[string]any{
		"id": payload.CustomerID,
	})
}
