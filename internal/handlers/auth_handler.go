package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	DeviceID *uuid.UUID `json:"device_id"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	UserID    uuid.UUID       `json:"user_id"`
	BranchID  *uuid.UUID      `json:"branch_id,omitempty"`
	Role      models.UserRole `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, map[string]any{"body": []string{"Malformed JSON."}})
		return
	}

	errs := map[string]any{}
	if req.Username == "" {
		errs["username"] = []string{"This field is required."}
	}
	if req.Password == "" {
		errs["password"] = []string{"This field is required."}
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	resp, err := h.authService.Login(r.Context(), services.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		DeviceID: req.DeviceID,
	})
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid username or password.", nil)
		return
	}
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		UserID:    resp.UserID,
		BranchID:  resp.BranchID,
		Role:      resp.Role,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid authorization header.", nil)
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid or expired token.", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
