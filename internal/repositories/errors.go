package repositories

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEvent is returned when inserting a sync event whose
	// (event_id, device_id) pair already exists in the ledger.
	ErrDuplicateEvent = errors.New("duplicate sync event for device")
)
