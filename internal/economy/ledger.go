// Package economy defines the boundary to the resource-economy
// collaborator. The core only reads balances and adds/subtracts; capacity
// enforcement and production math live behind this interface.
package economy

import (
	"sync"

	"github.com/rmoreas/warcycle/internal/game"
)

// Ledger is the opaque add/subtract interface the core mutates player
// balances through.
type Ledger interface {
	Balance(playerID string) game.ResourceVector
	Add(playerID string, v game.ResourceVector) error
	Subtract(playerID string, v game.ResourceVector) error
}

// MemoryLedger is the in-process Ledger used by tests and the simulator.
// Subtract clamps at zero rather than failing: affordability checks are the
// caller's job, forced deductions (combat losses) must always apply.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]game.ResourceVector
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]game.ResourceVector)}
}

// Balance returns the player's current holdings.
func (l *MemoryLedger) Balance(playerID string) game.ResourceVector {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[playerID]
}

// Add credits the player.
func (l *MemoryLedger) Add(playerID string, v game.ResourceVector) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[playerID] = l.balances[playerID].Add(v)
	return nil
}

// Subtract debits the player, clamping each component at zero.
func (l *MemoryLedger) Subtract(playerID string, v game.ResourceVector) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balances[playerID].Add(v.Scale(-1))
	if b.Manpower < 0 {
		b.Manpower = 0
	}
	if b.Materials < 0 {
		b.Materials = 0
	}
	if b.Energy < 0 {
		b.Energy = 0
	}
	if b.Technology < 0 {
		b.Technology = 0
	}
	l.balances[playerID] = b
	return nil
}
