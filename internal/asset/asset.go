// Package asset defines the boundary with the fungible asset holder
// that actually delivers purchased units. The ledger only validates and
// accounts; moving units is this collaborator's job.
package asset

import (
	"context"
	"fmt"
	"sync"

	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// Transfer is the delivery boundary. Implementations must fail loudly
// on insufficient balance rather than silently clamping, and may call
// back into the ledger, so callers must not expose intermediate state
// before invoking Deliver.
type Transfer interface {
	Deliver(ctx context.Context, to id.Identity, amount id.Amount) error
	BalanceHeld(ctx context.Context) (id.Amount, error)
}

// InMemoryVault holds the sale's undelivered asset supply in memory.
// It backs tests and single-process deployments; production wires an
// adapter to the real asset contract here.
type InMemoryVault struct {
	mu       sync.RWMutex
	held     id.Amount
	balances map[id.Identity]id.Amount
}

// NewInMemoryVault creates a vault funded with the full sale supply.
func NewInMemoryVault(supply id.Amount) *InMemoryVault {
	return &InMemoryVault{
		held:     supply,
		balances: make(map[id.Identity]id.Amount),
	}
}

// Deliver moves amount from the vault to the recipient. Underflow is a
// loud failure wrapping sentinel.ErrInsufficient.
func (v *InMemoryVault) Deliver(_ context.Context, to id.Identity, amount id.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	remaining, err := v.held.Sub(amount)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", amount, to, sentinel.ErrInsufficient)
	}
	v.held = remaining
	current, ok := v.balances[to]
	if !ok {
		current = id.ZeroAmount()
	}
	v.balances[to] = current.Add(amount)
	return nil
}

// BalanceHeld reports the undelivered supply still in the vault.
func (v *InMemoryVault) BalanceHeld(_ context.Context) (id.Amount, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.held, nil
}

// BalanceOf reports how much has been delivered to an identity. Test
// helper; the real asset contract owns this view in production.
func (v *InMemoryVault) BalanceOf(identity id.Identity) id.Amount {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if balance, ok := v.balances[identity]; ok {
		return balance
	}
	return id.ZeroAmount()
}
