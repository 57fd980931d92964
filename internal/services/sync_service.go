package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
)

// Identity is the authenticated caller as established upstream. BranchID is
// nil for users without a home branch (admins).
type Identity struct {
	UserID   uuid.UUID
	BranchID *uuid.UUID
	Role     models.UserRole
}

type PushEvent struct {
	EventID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type PushInput struct {
	DeviceID     uuid.UUID
	Events       []PushEvent
	ValidateOnly bool
}

// RejectedEvent reports one event-level rejection. Code always mirrors
// Reason; clients are told to branch on Code.
type RejectedEvent struct {
	EventID uuid.UUID      `json:"event_id"`
	Reason  string         `json:"reason"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

type PushResult struct {
	Acknowledged []uuid.UUID
	Rejected     []RejectedEvent
	ServerCursor int64
	ValidateOnly bool
}

type PullInput struct {
	DeviceID uuid.UUID
	Cursor   int64
	Limit    int
}

type PullUpdate struct {
	Cursor   int64           `json:"cursor"`
	Entity   string          `json:"entity"`
	Op       models.OutboxOp `json:"op"`
	EntityID uuid.UUID       `json:"entity_id"`
	Payload  json.RawMessage `json:"payload"`
}

type PullResult struct {
	ServerCursor int64
	Updates      []PullUpdate
	HasMore      bool
}

type ConflictActionInput struct {
	DeviceID        uuid.UUID
	Action          string
	EventID         *uuid.UUID
	EventType       string
	Reason          string
	PayloadSnapshot json.RawMessage
	Details         map[string]any
}

// SyncService drives the push/pull protocol: device authorization, the
// idempotency ledger, event processing and the outbox cursor.
type SyncService struct {
	store     repositories.Store
	processor *EventProcessor
	presence  repositories.PresenceRepository
}

// NewSyncService creates a sync service. presence may be nil when no
// presence backend is configured.
func NewSyncService(store repositories.Store, processor *EventProcessor, presence repositories.PresenceRepository) *SyncService {
	return &SyncService{
		store:     store,
		processor: processor,
		presence:  presence,
	}
}

// ResolveDevice authorizes the caller for a device. Unknown and inactive
// devices both resolve to ErrDeviceNotFound; a branch mismatch is
// ErrForbiddenDevice unless the caller is an admin.
func (s *SyncService) ResolveDevice(ctx context.Context, identity *Identity, deviceID uuid.UUID) (*models.Device, error) {
	device, err := s.store.Devices().GetByID(ctx, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if !device.IsActive {
		return nil, ErrDeviceNotFound
	}
	if identity.Role == models.RoleAdmin {
		return device, nil
	}
	if identity.BranchID == nil || *identity.BranchID != device.BranchID {
		return nil, ErrForbiddenDevice
	}
	return device, nil
}

// payloadBranchProbe peeks at the claimed branch without decoding the full
// event-specific payload.
type payloadBranchProbe struct {
	BranchID uuid.UUID `json:"branch_id"`
}

func (s *SyncService) Push(ctx context.Context, identity *Identity, input PushInput) (*PushResult, error) {
	device, err := s.ResolveDevice(ctx, identity, input.DeviceID)
	if err != nil {
		return nil, err
	}

	result := &PushResult{
		Acknowledged: []uuid.UUID{},
		Rejected:     []RejectedEvent{},
		ValidateOnly: input.ValidateOnly,
	}

	for _, event := range input.Events {
		var probe payloadBranchProbe
		if err := json.Unmarshal(event.Payload, &probe); err != nil || probe.BranchID != device.BranchID {
			// Refused before the ledger is touched: no SyncEvent row is
			// created for an event aimed at the wrong branch.
			result.Rejected = append(result.Rejected, RejectedEvent{
				EventID: event.EventID,
				Reason:  ReasonValidationFailed,
				Code:    ReasonValidationFailed,
				Details: map[string]any{"branch_id": "Payload branch_id does not match device branch."},
			})
			continue
		}

		if input.ValidateOnly {
			verdict, err := s.validateEvent(ctx, identity, device, event)
			if err != nil {
				return nil, err
			}
			s.classify(result, event.EventID, verdict)
			continue
		}

		verdict, err := s.applyEvent(ctx, identity, device, event)
		if errors.Is(err, repositories.ErrDuplicateEvent) {
			// A concurrent delivery of the same event won the ledger insert.
			result.Rejected = append(result.Rejected, RejectedEvent{
				EventID: event.EventID,
				Reason:  ReasonConflict,
				Code:    ReasonConflict,
				Details: map[string]any{"error": "Event was already recorded for this device."},
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		s.classify(result, event.EventID, verdict)
	}

	cursor, err := s.store.Outbox().LatestID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox cursor: %w", err)
	}
	result.ServerCursor = cursor

	s.touchDevice(ctx, device)
	return result, nil
}

// applyEvent runs one event through the ledger and processor inside a single
// transaction. The ledger row commits even when the handler rejects; only
// the handler's domain writes are rolled back.
func (s *SyncService) applyEvent(ctx context.Context, identity *Identity, device *models.Device, event PushEvent) (*Result, error) {
	var verdict *Result
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		_, err := tx.SyncEvents().GetByEventID(ctx, event.EventID, device.ID)
		if err == nil {
			// Already applied on a previous push.
			verdict = &Result{Accepted: true}
			return nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("failed to check ledger: %w", err)
		}

		record := &models.SyncEvent{
			BranchID:  device.BranchID,
			DeviceID:  device.ID,
			UserID:    identity.UserID,
			EventID:   event.EventID,
			EventType: event.EventType,
			Payload:   event.Payload,
			Status:    models.SyncEventAccepted,
		}
		if err := tx.SyncEvents().Insert(ctx, record); err != nil {
			return err
		}

		result, err := s.processor.Process(ctx, tx, record)
		if err != nil {
			return err
		}
		verdict = result

		status := models.SyncEventProcessed
		if !result.Accepted {
			status = models.SyncEventRejected
		}
		if err := tx.SyncEvents().MarkProcessed(ctx, record.ID, status, time.Now()); err != nil {
			return fmt.Errorf("failed to update ledger row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// validateEvent runs the processor in a transaction that always rolls back,
// so a dry run leaves no ledger row, domain write or outbox record behind.
func (s *SyncService) validateEvent(ctx context.Context, identity *Identity, device *models.Device, event PushEvent) (*Result, error) {
	var verdict *Result
	err := s.store.WithinRollbackTx(ctx, func(tx repositories.Store) error {
		record := &models.SyncEvent{
			ID:        uuid.New(),
			BranchID:  device.BranchID,
			DeviceID:  device.ID,
			UserID:    identity.UserID,
			EventID:   event.EventID,
			EventType: event.EventType,
			Payload:   event.Payload,
			Status:    models.SyncEventAccepted,
		}
		result, err := s.processor.Process(ctx, tx, record)
		if err != nil {
			return err
		}
		verdict = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

func (s *SyncService) classify(result *PushResult, eventID uuid.UUID, verdict *Result) {
	if verdict.Accepted {
		result.Acknowledged = append(result.Acknowledged, eventID)
		return
	}
	details := verdict.Details
	if details == nil {
		details = map[string]any{}
	}
	result.Rejected = append(result.Rejected, RejectedEvent{
		EventID: eventID,
		Reason:  verdict.Reason,
		Code:    verdict.Reason,
		Details: details,
	})
}

func (s *SyncService) Pull(ctx context.Context, identity *Identity, input PullInput) (*PullResult, error) {
	device, err := s.ResolveDevice(ctx, identity, input.DeviceID)
	if err != nil {
		return nil, err
	}

	records, hasMore, err := s.store.Outbox().ListAfter(ctx, device.BranchID, input.Cursor, input.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox records: %w", err)
	}

	result := &PullResult{
		ServerCursor: input.Cursor,
		Updates:      make([]PullUpdate, 0, len(records)),
		HasMore:      hasMore,
	}
	for _, record := range records {
		result.Updates = append(result.Updates, PullUpdate{
			Cursor:   record.ID,
			Entity:   record.Entity,
			Op:       record.Op,
			EntityID: record.EntityID,
			Payload:  record.Payload,
		})
		result.ServerCursor = record.ID
	}

	s.touchDevice(ctx, device)
	return result, nil
}

// ConflictAction records a client's resolution of a rejected event in the
// audit log. It never replays or mutates sync state.
func (s *SyncService) ConflictAction(ctx context.Context, identity *Identity, input ConflictActionInput) error {
	device, err := s.ResolveDevice(ctx, identity, input.DeviceID)
	if err != nil {
		return err
	}

	before, err := json.Marshal(map[string]any{
		"event_type":       input.EventType,
		"payload_snapshot": input.PayloadSnapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}
	after, err := json.Marshal(map[string]any{
		"reason":  input.Reason,
		"details": input.Details,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit snapshot: %w", err)
	}

	entry := &models.AuditLog{
		BranchID: &device.BranchID,
		DeviceID: &device.ID,
		UserID:   &identity.UserID,
		Action:   "sync.conflict." + input.Action,
		Entity:   "sync_event",
		EntityID: input.EventID,
		EventID:  input.EventID,
		Before:   before,
		After:    after,
	}
	if err := s.store.AuditLogs().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// touchDevice records device liveness best-effort; sync traffic never fails
// because the heartbeat could not be written.
func (s *SyncService) touchDevice(ctx context.Context, device *models.Device) {
	if err := s.store.Devices().TouchLastSeen(ctx, device.ID); err != nil {
		log.Printf("Failed to update device last seen: %v", err)
	}
	if s.presence == nil {
		return
	}
	presence := &models.Presence{
		BranchID: device.BranchID,
		DeviceID: device.ID,
		Status:   string(models.StatusOnline),
	}
	if err := s.presence.SetPresence(ctx, presence); err != nil {
		log.Printf("Failed to update device presence: %v", err)
	}
}
