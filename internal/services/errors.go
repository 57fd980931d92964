package services

import "errors"

// Rejection reasons carried on per-event results. The same value is exposed
// to clients as both "reason" and "code".
const (
	ReasonValidationFailed = "validation_failed"
	ReasonForbidden        = "forbidden"
	ReasonConflict         = "conflict"
)

var (
	// ErrDeviceNotFound covers both unknown and deactivated devices so a
	// probing client cannot tell them apart.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrForbiddenDevice means the device exists but belongs to a branch the
	// caller is not scoped to.
	ErrForbiddenDevice = errors.New("device belongs to a different branch")
)

// RejectError turns a handler failure into a per-event rejection instead of
// failing the whole batch. Details maps offending fields to messages.
type RejectError struct {
	Reason  string
	Details map[string]any
}

func (e *RejectError) Error() string { return e.Reason }

func rejectValidation(details map[string]any) *RejectError {
	return &RejectError{Reason: ReasonValidationFailed, Details: details}
}

func rejectForbidden(details map[string]any) *RejectError {
	return &RejectError{Reason: ReasonForbidden, Details: details}
}
