package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/ledger/store"
)

func TestMemory_EmptyStoreHasNoSnapshot(t *testing.T) {
	_, err := store.NewMemory().Load(context.Background())
	assert.ErrorIs(t, err, ledger.ErrSnapshotNotFound)
}

func TestMemory_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	s := ledger.NewState([]ledger.SystemUser{{Username: "admin", PasswordHash: "h", Role: ledger.RoleAdmin}})

	v, err := m.Save(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, s, snap.State)
}

func TestMemory_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	_, err := m.Save(ctx, ledger.NewState(nil), 0)
	require.NoError(t, err)

	_, err = m.Save(ctx, ledger.NewState(nil), 0)
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)
	assert.Equal(t, 1, m.Saves())
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryWith(ledger.NewState([]ledger.SystemUser{{Username: "admin"}}))

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	snap.State.SystemUsers[0].Username = "changed"

	again, _ := m.Load(ctx)
	assert.Equal(t, "admin", again.State.SystemUsers[0].Username)
}
