package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/services"
)

const (
	defaultPullLimit = 500
	maxPullLimit     = 1000
)

var conflictActions = map[string]bool{
	"retry_exact": true,
	"clone_edit":  true,
	"discard":     true,
}

type SyncHandler struct {
	syncService *services.SyncService
}

func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type pushEventRequest struct {
	EventID   *uuid.UUID      `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt *time.Time      `json:"created_at"`
}

type pushRequest struct {
	DeviceID     *uuid.UUID         `json:"device_id"`
	Events       []pushEventRequest `json:"events"`
	ValidateOnly bool               `json:"validate_only"`
}

type pushResponse struct {
	Acknowledged []uuid.UUID              `json:"acknowledged"`
	Rejected     []services.RejectedEvent `json:"rejected"`
	ServerCursor int64                    `json:"server_cursor"`
	ValidateOnly bool                     `json:"validate_only"`
}

func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]any{"body": []string{"Malformed JSON."}})
		return
	}

	errs := map[string]any{}
	if req.DeviceID == nil {
		errs["device_id"] = []string{"This field is required."}
	}
	if req.Events == nil {
		errs["events"] = []string{"This field is required."}
	}
	for _, event := range req.Events {
		switch {
		case event.EventID == nil:
			errs["events"] = []string{"Each event requires an event_id."}
		case event.EventType == "":
			errs["events"] = []string{"Each event requires an event_type."}
		case len(event.Payload) == 0:
			errs["events"] = []string{"Each event requires a payload."}
		case event.CreatedAt == nil:
			errs["events"] = []string{"Each event requires a created_at timestamp."}
		}
		if _, ok := errs["events"]; ok {
			break
		}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	input := services.PushInput{
		DeviceID:     *req.DeviceID,
		ValidateOnly: req.ValidateOnly,
	}
	for _, event := range req.Events {
		input.Events = append(input.Events, services.PushEvent{
			EventID:   *event.EventID,
			EventType: event.EventType,
			Payload:   event.Payload,
			CreatedAt: *event.CreatedAt,
		})
	}

	result, err := h.syncService.Push(r.Context(), identityFrom(r.Context()), input)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pushResponse{
		Acknowledged: result.Acknowledged,
		Rejected:     result.Rejected,
		ServerCursor: result.ServerCursor,
		ValidateOnly: result.ValidateOnly,
	})
}

type pullRequest struct {
	DeviceID *uuid.UUID `json:"device_id"`
	Cursor   *int64     `json:"cursor"`
	Limit    *int       `json:"limit"`
}

type pullUpdateResponse struct {
	Cursor   int64           `json:"cursor"`
	Entity   string          `json:"entity"`
	Op       models.OutboxOp `json:"op"`
	EntityID uuid.UUID       `json:"entity_id"`
	Payload  json.RawMessage `json:"payload"`
}

type pullResponse struct {
	ServerCursor int64                `json:"server_cursor"`
	Updates      []pullUpdateResponse `json:"updates"`
	HasMore      bool                 `json:"has_more"`
}

func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]any{"body": []string{"Malformed JSON."}})
		return
	}

	errs := map[string]any{}
	if req.DeviceID == nil {
		errs["device_id"] = []string{"This field is required."}
	}
	if req.Cursor == nil {
		errs["cursor"] = []string{"This field is required."}
	} else if *req.Cursor < 0 {
		errs["cursor"] = []string{"Cursor must be zero or greater."}
	}
	limit := defaultPullLimit
	if req.Limit != nil {
		limit = *req.Limit
		if limit < 1 || limit > maxPullLimit {
			errs["limit"] = []string{"Limit must be between 1 and 1000."}
		}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	result, err := h.syncService.Pull(r.Context(), identityFrom(r.Context()), services.PullInput{
		DeviceID: *req.DeviceID,
		Cursor:   *req.Cursor,
		Limit:    limit,
	})
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	updates := make([]pullUpdateResponse, 0, len(result.Updates))
	for _, update := range result.Updates {
		updates = append(updates, pullUpdateResponse{
			Cursor:   update.Cursor,
			Entity:   update.Entity,
			Op:       update.Op,
			EntityID: update.EntityID,
			Payload:  update.Payload,
		})
	}

	writeJSON(w, http.StatusOK, pullResponse{
		ServerCursor: result.ServerCursor,
		Updates:      updates,
		HasMore:      result.HasMore,
	})
}

type conflictActionRequest struct {
	DeviceID        *uuid.UUID      `json:"device_id"`
	Action          string          `json:"action"`
	EventID         *uuid.UUID      `json:"event_id"`
	EventType       string          `json:"event_type"`
	Reason          string          `json:"reason"`
	PayloadSnapshot json.RawMessage `json:"payload_snapshot"`
	Details         map[string]any  `json:"details"`
}

func (h *SyncHandler) ConflictAction(w http.ResponseWriter, r *http.Request) {
	var req conflictActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]any{"body": []string{"Malformed JSON."}})
		return
	}

	errs := map[string]any{}
	if req.DeviceID == nil {
		errs["device_id"] = []string{"This field is required."}
	}
	if !conflictActions[req.Action] {
		errs["action"] = []string{"Action must be one of retry_exact, clone_edit, discard."}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	err := h.syncService.ConflictAction(r.Context(), identityFrom(r.Context()), services.ConflictActionInput{
		DeviceID:        *req.DeviceID,
		Action:          req.Action,
		EventID:         req.EventID,
		EventType:       req.EventType,
		Reason:          req.Reason,
		PayloadSnapshot: req.PayloadSnapshot,
		Details:         req.Details,
	})
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}
