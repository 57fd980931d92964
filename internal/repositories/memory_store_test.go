package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloro/possync/internal/models"
)

func seedBranch(t *testing.T, store *MemoryStore) *models.Branch {
	t.Helper()
	branch := &models.Branch{Code: "BR1", Name: "Main", Timezone: "UTC", IsActive: true}
	require.NoError(t, store.Branches().Create(context.Background(), branch))
	return branch
}

func TestMemoryStore_WithinTx_RollbackOnError(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	boom := errors.New("boom")
	customerID := uuid.New()

	err := store.WithinTx(ctx, func(tx Store) error {
		customer := &models.Customer{ID: customerID, BranchID: branch.ID, Name: "Rolled Back"}
		require.NoError(t, tx.Customers().Upsert(ctx, customer))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Customers().GetInBranch(ctx, customerID, branch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_WithinTx_CommitOnNil(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()
	customerID := uuid.New()

	err := store.WithinTx(ctx, func(tx Store) error {
		return tx.Customers().Upsert(ctx, &models.Customer{ID: customerID, BranchID: branch.ID, Name: "Kept"})
	})
	require.NoError(t, err)

	customer, err := store.Customers().GetInBranch(ctx, customerID, branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", customer.Name)
}

func TestMemoryStore_NestedTx_InnerRollbackOnly(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	outerID := uuid.New()
	innerID := uuid.New()
	inner := errors.New("inner failure")

	err := store.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Customers().Upsert(ctx, &models.Customer{ID: outerID, BranchID: branch.ID, Name: "Outer"}))

		nestedErr := tx.WithinTx(ctx, func(nested Store) error {
			require.NoError(t, nested.Customers().Upsert(ctx, &models.Customer{ID: innerID, BranchID: branch.ID, Name: "Inner"}))
			return inner
		})
		require.ErrorIs(t, nestedErr, inner)
		return nil
	})
	require.NoError(t, err)

	// Outer write committed, inner write rolled back at the savepoint.
	_, err = store.Customers().GetInBranch(ctx, outerID, branch.ID)
	assert.NoError(t, err)
	_, err = store.Customers().GetInBranch(ctx, innerID, branch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_WithinRollbackTx_AlwaysDiscards(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()
	customerID := uuid.New()

	err := store.WithinRollbackTx(ctx, func(tx Store) error {
		return tx.Customers().Upsert(ctx, &models.Customer{ID: customerID, BranchID: branch.ID, Name: "Dry Run"})
	})
	require.NoError(t, err)

	_, err = store.Customers().GetInBranch(ctx, customerID, branch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Outbox_MonotonicIDs(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := &models.SyncOutbox{
			BranchID: branch.ID,
			Entity:   "customer",
			EntityID: uuid.New(),
			Op:       models.OutboxUpsert,
			Payload:  []byte(`{}`),
		}
		require.NoError(t, store.Outbox().Append(ctx, record))
		assert.Equal(t, int64(i+1), record.ID)
	}

	latest, err := store.Outbox().LatestID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest)
}

func TestMemoryStore_Outbox_SequenceSurvivesRollback(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	record := func() *models.SyncOutbox {
		return &models.SyncOutbox{
			BranchID: branch.ID,
			Entity:   "customer",
			EntityID: uuid.New(),
			Op:       models.OutboxUpsert,
			Payload:  []byte(`{}`),
		}
	}

	require.NoError(t, store.Outbox().Append(ctx, record()))
	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		require.NoError(t, tx.Outbox().Append(ctx, record()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// After the rollback only one row is visible; ids stay strictly
	// increasing from the committed point.
	next := record()
	require.NoError(t, store.Outbox().Append(ctx, next))
	rows, _, err := store.Outbox().ListAfter(ctx, branch.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Less(t, rows[0].ID, rows[1].ID)
	assert.Equal(t, next.ID, rows[1].ID)
}

func TestMemoryStore_Outbox_ListAfterPaging(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Outbox().Append(ctx, &models.SyncOutbox{
			BranchID: branch.ID,
			Entity:   "customer",
			EntityID: uuid.New(),
			Op:       models.OutboxUpsert,
			Payload:  []byte(`{}`),
		}))
	}

	rows, hasMore, err := store.Outbox().ListAfter(ctx, branch.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, hasMore)
	assert.Equal(t, int64(3), rows[0].ID)
	assert.Equal(t, int64(4), rows[1].ID)

	rows, hasMore, err = store.Outbox().ListAfter(ctx, branch.ID, 4, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, hasMore)
}

func TestMemoryStore_SyncEvents_DuplicateInsert(t *testing.T) {
	store := NewMemoryStore()
	branch := seedBranch(t, store)
	ctx := context.Background()

	eventID := uuid.New()
	deviceID := uuid.New()
	event := func() *models.SyncEvent {
		return &models.SyncEvent{
			BranchID:  branch.ID,
			DeviceID:  deviceID,
			UserID:    uuid.New(),
			EventID:   eventID,
			EventType: "customer.upsert",
			Payload:   []byte(`{}`),
		}
	}

	require.NoError(t, store.SyncEvents().Insert(ctx, event()))
	err := store.SyncEvents().Insert(ctx, event())
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	// Same event id on a different device is a different ledger key.
	other := event()
	other.DeviceID = uuid.New()
	assert.NoError(t, store.SyncEvents().Insert(ctx, other))
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	live := &models.Session{ID: "live", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	got, err := repo.GetByID(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.UserID, got.UserID)

	expired := &models.Session{ID: "expired", UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, expired))
	_, err = repo.GetByID(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.GetByID(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)
}
