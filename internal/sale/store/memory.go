package store

import (
	"context"
	"sync"

	"salegate/internal/sale/models"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// InMemory holds the whole sale ledger behind one mutex. Execute holds
// the write lock across validate and mutate, which is the serialization
// boundary the ledger's invariants assume.
type InMemory struct {
	mu     sync.RWMutex
	ledger *models.Ledger
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Init seeds the ledger state. Re-running with a ledger already present
// is a conflict.
func (s *InMemory) Init(_ context.Context, supplyCap id.Amount, stage id.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger != nil {
		return sentinel.ErrConflict
	}
	s.ledger = models.NewLedger(supplyCap, stage)
	return nil
}

// View returns a snapshot copy of the ledger restricted to the given
// identities (all aggregate fields, only the orders asked for).
func (s *InMemory) View(_ context.Context, identities ...id.Identity) (*models.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyLedger(s.ledger, identities), nil
}

// Execute runs validate then mutate under the write lock and returns a
// snapshot of the resulting state for the touched identities.
func (s *InMemory) Execute(
	_ context.Context,
	touched []id.Identity,
	validate func(*models.Ledger) error,
	mutate func(*models.Ledger),
) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(s.ledger); err != nil {
		return nil, err
	}
	mutate(s.ledger)
	return copyLedger(s.ledger, touched), nil
}

func copyLedger(l *models.Ledger, identities []id.Identity) *models.Ledger {
	out := &models.Ledger{
		Stage:          l.Stage,
		SupplyCap:      l.SupplyCap,
		TotalAllocated: l.TotalAllocated,
		RefundApproved: l.RefundApproved,
		Orders:         make(map[id.Identity]*models.Order, len(identities)),
	}
	for _, identity := range identities {
		if order, ok := l.Orders[identity]; ok {
			copied := *order
			out.Orders[identity] = &copied
		}
	}
	return out
}
