package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
	"github.com/veloro/possync/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	store       repositories.Store
	sessionRepo repositories.SessionRepository
	jwtSecret   string
	jwtExpiry   time.Duration
}

type LoginRequest struct {
	Username string
	Password string
	DeviceID *uuid.UUID // optional device binding for POS terminals
}

type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
	BranchID  *uuid.UUID
	Role      models.UserRole
}

type TokenClaims struct {
	UserID    uuid.UUID
	BranchID  *uuid.UUID
	Role      models.UserRole
	SessionID string
}

func NewAuthService(
	store repositories.Store,
	sessionRepo repositories.SessionRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		store:       store,
		sessionRepo: sessionRepo,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.store.Users().GetByUsername(ctx, req.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	// Optional device binding: cashiers log in from a terminal, back-office
	// users do not.
	if req.DeviceID != nil {
		device, err := s.store.Devices().GetByID(ctx, *req.DeviceID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get device: %w", err)
		}
		if !device.IsActive {
			return nil, ErrDeviceNotFound
		}
		if user.Role != models.RoleAdmin && (user.BranchID == nil || *user.BranchID != device.BranchID) {
			return nil, ErrForbiddenDevice
		}
	}

	sessionID := uuid.New().String()
	expiresAt := time.Now().Add(s.jwtExpiry)
	session := &models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		DeviceID:  req.DeviceID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(user, sessionID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		BranchID:  user.BranchID,
		Role:      user.Role,
	}, nil
}

func (s *AuthService) generateToken(user *models.User, sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"jti":  sessionID,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}
	if user.BranchID != nil {
		claims["branch_id"] = user.BranchID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken validates a bearer token and checks that its session is still
// live, so logout takes effect before the JWT expires.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userIDStr, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	roleStr, ok := claims["role"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	var branchID *uuid.UUID
	if branchIDStr, ok := claims["branch_id"].(string); ok {
		parsed, err := uuid.Parse(branchIDStr)
		if err != nil {
			return nil, ErrInvalidToken
		}
		branchID = &parsed
	}

	sessionID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    userID,
		BranchID:  branchID,
		Role:      models.UserRole(roleStr),
		SessionID: sessionID,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.VerifyToken(ctx, tokenString)
	if err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
