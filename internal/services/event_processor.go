package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

// EventType enumerates the supported sync event types. Dispatch is a closed
// switch so adding a type is a compile-visible change.
type EventType string

const (
	EventInvoiceCreate         EventType = "invoice.create"
	EventCustomerUpsert        EventType = "customer.upsert"
	EventCustomerDelete        EventType = "customer.delete"
	EventStockAdjust           EventType = "stock.adjust"
	EventProductStockStatusSet EventType = "product.stock_status.set"
	EventTransferCreate        EventType = "stock.transfer.create"
	EventTransferApprove       EventType = "stock.transfer.approve"
	EventTransferComplete      EventType = "stock.transfer.complete"
)

// ParseEventType maps a wire string to a known EventType.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(s); t {
	case EventInvoiceCreate, EventCustomerUpsert, EventCustomerDelete,
		EventStockAdjust, EventProductStockStatusSet,
		EventTransferCreate, EventTransferApprove, EventTransferComplete:
		return t, true
	}
	return "", false
}

// Result is the processor's verdict for one event. Reason and Details are
// only set when Accepted is false.
type Result struct {
	Accepted bool
	Reason   string
	Details  map[string]any
}

// EventProcessor dispatches a ledgered event to its mutation handler and
// normalizes the outcome. Handlers run inside one transaction: a rejection
// rolls back every domain write and outbox insert the handler made, while
// unexpected errors propagate to the caller untouched.
type EventProcessor struct{}

func NewEventProcessor() *EventProcessor {
	return &EventProcessor{}
}

func (p *EventProcessor) Process(ctx context.Context, store repositories.Store, event *models.SyncEvent) (*Result, error) {
	eventType, ok := ParseEventType(event.EventType)
	if !ok {
		// Unknown types are rejected before any transaction is opened.
		return &Result{
			Accepted: false,
			Reason:   ReasonValidationFailed,
			Details:  map[string]any{"event_type": fmt.Sprintf("Unsupported event_type '%s'", event.EventType)},
		}, nil
	}

	err := store.WithinTx(ctx, func(tx repositories.Store) error {
		switch eventType {
		case EventInvoiceCreate:
			return p.handleInvoiceCreate(ctx, tx, event)
		case EventCustomerUpsert:
			return p.handleCustomerUpsert(ctx, tx, event)
		case EventCustomerDelete:
			return p.handleCustomerDelete(ctx, tx, event)
		case EventStockAdjust:
			return p.handleStockAdjust(ctx, tx, event)
		case EventProductStockStatusSet:
			return p.handleProductStockStatusSet(ctx, tx, event)
		case EventTransferCreate:
			return p.handleTransferCreate(ctx, tx, event)
		case EventTransferApprove:
			return p.handleTransferApprove(ctx, tx, event)
		case EventTransferComplete:
			return p.handleTransferComplete(ctx, tx, event)
		}
		return fmt.Errorf("unhandled event type %q", eventType)
	})
	if err != nil {
		var reject *RejectError
		if errors.As(err, &reject) {
			return &Result{Accepted: false, Reason: reject.Reason, Details: reject.Details}, nil
		}
		return nil, err
	}
	return &Result{Accepted: true}, nil
}

// decodePayload unmarshals the client payload into a typed struct; malformed
// payloads become validation rejections rather than fatal errors.
func decodePayload(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return rejectValidation(map[string]any{"payload": "Malformed payload."})
	}
	return nil
}

func requireFields(missing []string) error {
	if len(missing) > 0 {
		return rejectValidation(map[string]any{"missing_fields": missing})
	}
	return nil
}

// checkBranchScope rejects a payload claiming a branch other than the one
// the event's device belongs to.
func checkBranchScope(payloadBranchID uuid.UUID, event *models.SyncEvent) error {
	if payloadBranchID != event.BranchID {
		return rejectForbidden(map[string]any{"branch_id": "Payload branch_id does not match device branch."})
	}
	return nil
}

func emitOutbox(ctx context.Context, tx repositories.Store, branchID uuid.UUID, entity string, entityID uuid.UUID, op models.OutboxOp, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	record := &models.SyncOutbox{
		BranchID: branchID,
		Entity:   entity,
		EntityID: entityID,
		Op:       op,
		Payload:  raw,
	}
	if err := tx.Outbox().Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append outbox record: %w", err)
	}
	return nil
}
