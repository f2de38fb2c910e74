package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/evetabi/settlement/internal/domain"
)

// Memory is an in-process Store used by tests and by the engine suites that
// need solvency accounting without a database.
type Memory struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	journal  []Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{balances: make(map[uuid.UUID]int64)}
}

// Fund seeds a wallet balance directly, bypassing the journal.
func (m *Memory) Fund(walletID uuid.UUID, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[walletID] += amount
}

// Balance returns a wallet's current balance.
func (m *Memory) Balance(walletID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[walletID]
}

// Journal returns a copy of every applied entry in order.
func (m *Memory) Journal() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.journal))
	copy(out, m.journal)
	return out
}

// AdjustBalance implements Store.
func (m *Memory) AdjustBalance(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.balances[e.WalletID] + e.Amount
	if next < 0 {
		return domain.ErrInsufficientBalance
	}
	m.balances[e.WalletID] = next
	m.journal = append(m.journal, e)
	return nil
}
