package store

import (
	"context"
	"sync"

	"salegate/internal/ownership/models"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
)

// InMemory holds the ownership registry behind a mutex. Execute holds
// the lock across validate and mutate so authorization and precondition
// checks observe the same state the mutation applies to.
type InMemory struct {
	mu       sync.RWMutex
	registry *models.Registry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Bootstrap seeds the registry with the configured master identity.
// Calling it again with the same master is a no-op.
func (s *InMemory) Bootstrap(_ context.Context, master id.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry != nil {
		if s.registry.Master == master {
			return nil
		}
		return sentinel.ErrConflict
	}
	registry, err := models.NewRegistry(master)
	if err != nil {
		return err
	}
	s.registry = registry
	return nil
}

// Get returns a snapshot copy of the registry.
func (s *InMemory) Get(_ context.Context) (*models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.registry == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyRegistry(s.registry), nil
}

// Execute runs validate then mutate under the write lock and returns a
// snapshot of the resulting state.
func (s *InMemory) Execute(
	_ context.Context,
	validate func(*models.Registry) error,
	mutate func(*models.Registry),
) (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(s.registry); err != nil {
		return nil, err
	}
	mutate(s.registry)
	return copyRegistry(s.registry), nil
}

func copyRegistry(r *models.Registry) *models.Registry {
	owners := make(map[id.Identity]bool, len(r.Owners))
	for k, v := range r.Owners {
		owners[k] = v
	}
	return &models.Registry{Master: r.Master, Owners: owners}
}
