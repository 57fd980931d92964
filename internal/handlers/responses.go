package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/veloro/possync/internal/services"
)

// Stable request-level error codes. Per-event rejection reasons travel in
// the push response body instead.
const (
	codeValidationError = "validation_error"
	codeDeviceNotFound  = "device_not_found"
	codeForbiddenDevice = "forbidden_device"
	codeUnauthorized    = "unauthorized"
	codeInternalError   = "internal_error"
)

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  any    `json:"errors"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, errs any) {
	writeJSON(w, status, errorEnvelope{
		Code:    code,
		Message: message,
		Errors:  errs,
		Status:  status,
	})
}

func writeValidationError(w http.ResponseWriter, errs any) {
	writeError(w, http.StatusUnprocessableEntity, codeValidationError, "Validation failed.", errs)
}

// writeDeviceError maps device-resolution failures onto the request-level
// envelope; anything else is a server error.
func writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, codeDeviceNotFound, "Device was not found.",
			map[string]any{"device_id": []string{"Device was not found."}})
	case errors.Is(err, services.ErrForbiddenDevice):
		writeError(w, http.StatusForbidden, codeForbiddenDevice, "Device access is not allowed.",
			map[string]any{"device_id": []string{"Device does not belong to the authenticated user branch."}})
	default:
		log.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "Internal server error.", nil)
	}
}
