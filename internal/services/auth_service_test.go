package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloro/possync/internal/models"
	"github.com/veloro/possync/internal/repositories"
	"github.com/veloro/possync/internal/utils"
)

type authFixture struct {
	store   *repositories.MemoryStore
	service *AuthService
	branch  *models.Branch
	user    *models.User
	device  *models.Device
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()

	branch := &models.Branch{Code: "BR1", Name: "Main", Timezone: "UTC", IsActive: true}
	require.NoError(t, store.Branches().Create(ctx, branch))

	hash, err := utils.HashPassword("correct-horse-battery")
	require.NoError(t, err)
	user := &models.User{
		BranchID:     &branch.ID,
		Username:     "cashier1",
		PasswordHash: hash,
		Role:         models.RoleCashier,
		IsActive:     true,
	}
	require.NoError(t, store.Users().Create(ctx, user))

	device := &models.Device{BranchID: branch.ID, Name: "Till 1", Identifier: "till-1", IsActive: true}
	require.NoError(t, store.Devices().Create(ctx, device))

	return &authFixture{
		store:   store,
		service: NewAuthService(store, repositories.NewMemorySessionRepository(), "test-secret", time.Hour),
		branch:  branch,
		user:    user,
		device:  device,
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.service.Login(ctx, LoginRequest{Username: "cashier1", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, f.user.ID, resp.UserID)
	require.NotNil(t, resp.BranchID)
	assert.Equal(t, f.branch.ID, *resp.BranchID)
	assert.Equal(t, models.RoleCashier, resp.Role)

	claims, err := f.service.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, f.branch.ID, *claims.BranchID)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginRequest{Username: "cashier1", Password: "wrong-password-here"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginRequest{Username: "nobody", Password: "correct-horse-battery"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("dormant-password-1")
	require.NoError(t, err)
	dormant := &models.User{
		BranchID:     &f.branch.ID,
		Username:     "dormant1",
		PasswordHash: hash,
		Role:         models.RoleCashier,
		IsActive:     false,
	}
	require.NoError(t, f.store.Users().Create(ctx, dormant))

	_, err = f.service.Login(ctx, LoginRequest{Username: "dormant1", Password: "dormant-password-1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DeviceBinding(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.service.Login(ctx, LoginRequest{
		Username: "cashier1",
		Password: "correct-horse-battery",
		DeviceID: &f.device.ID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	unknown := uuid.New()
	_, err = f.service.Login(ctx, LoginRequest{
		Username: "cashier1",
		Password: "correct-horse-battery",
		DeviceID: &unknown,
	})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestLogin_DeviceInOtherBranch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	other := &models.Branch{Code: "BR2", Name: "Second", Timezone: "UTC", IsActive: true}
	require.NoError(t, f.store.Branches().Create(ctx, other))
	foreign := &models.Device{BranchID: other.ID, Name: "Till 9", Identifier: "till-9", IsActive: true}
	require.NoError(t, f.store.Devices().Create(ctx, foreign))

	_, err := f.service.Login(ctx, LoginRequest{
		Username: "cashier1",
		Password: "correct-horse-battery",
		DeviceID: &foreign.ID,
	})
	assert.ErrorIs(t, err, ErrForbiddenDevice)
}

func TestLogin_AdminCrossesBranches(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("admin-password-123")
	require.NoError(t, err)
	admin := &models.User{
		Username:     "admin1",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, f.store.Users().Create(ctx, admin))

	resp, err := f.service.Login(ctx, LoginRequest{
		Username: "admin1",
		Password: "admin-password-123",
		DeviceID: &f.device.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.BranchID)

	claims, err := f.service.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.BranchID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.service.Login(ctx, LoginRequest{Username: "cashier1", Password: "correct-horse-battery"})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, resp.Token))

	_, err = f.service.VerifyToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Garbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.VerifyToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
