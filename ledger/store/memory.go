// Package store provides SnapshotStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/canteen-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	state   ledger.State
	version uint64
	saves   int
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store that already holds s at version 1.
func NewMemoryWith(s ledger.State) *Memory {
	return &Memory{state: s.Clone(), version: 1}
}

func (m *Memory) Load(_ context.Context) (ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.version == 0 {
		return ledger.Snapshot{}, ledger.ErrSnapshotNotFound
	}
	return ledger.Snapshot{State: m.state.Clone(), Version: m.version}, nil
}

// Save replaces the snapshot. Compare-and-swap on the version.
func (m *Memory) Save(_ context.Context, s ledger.State, expectedVersion uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expectedVersion != m.version {
		return m.version, ledger.ErrConcurrentModification
	}
	m.state = s.Clone()
	m.version++
	m.saves++
	return m.version, nil
}

// Saves returns how many snapshots were written.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
