package models

import (
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

// Registry is the aggregate root for the ownership set.
//
// Invariants:
//   - Master is always a member of Owners
//   - Master is never removable through owner removal
//   - Mastership transfers only to an identity that is already an owner
//   - The prior master stays an owner after a transfer
//
// Privileged ledger operations are authorized against this aggregate:
// "owner-gated" requires membership, "master-gated" requires equality
// with Master. Authorization is evaluated per call, never cached.
type Registry struct {
	Master id.Identity
	Owners map[id.Identity]bool
}

// NewRegistry bootstraps a registry with the deploying identity as
// master and sole owner.
func NewRegistry(master id.Identity) (*Registry, error) {
	if master.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "master identity is required")
	}
	return &Registry{
		Master: master,
		Owners: map[id.Identity]bool{master: true},
	}, nil
}

// IsOwner reports set membership.
func (r *Registry) IsOwner(identity id.Identity) bool {
	return r.Owners[identity]
}

// IsMaster reports equality with the controlling identity.
func (r *Registry) IsMaster(identity id.Identity) bool {
	return identity == r.Master
}

// CanAddOwner checks the add-owner preconditions.
func (r *Registry) CanAddOwner(identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "owner identity is required")
	}
	if r.Owners[identity] {
		return dErrors.New(dErrors.CodeConflict, "identity is already an owner")
	}
	return nil
}

// ApplyAddOwner adds the identity to the owner set. Call CanAddOwner
// first.
func (r *Registry) ApplyAddOwner(identity id.Identity) {
	r.Owners[identity] = true
}

// CanRemoveOwner checks the remove-owner preconditions. The master is
// protected: it can only leave the set via a separate removal after a
// mastership transfer.
func (r *Registry) CanRemoveOwner(identity id.Identity) error {
	if identity == r.Master {
		return dErrors.New(dErrors.CodeForbidden, "master identity cannot be removed")
	}
	if !r.Owners[identity] {
		return dErrors.New(dErrors.CodeConflict, "identity is not an owner")
	}
	return nil
}

// ApplyRemoveOwner clears the identity's membership. Call CanRemoveOwner
// first.
func (r *Registry) ApplyRemoveOwner(identity id.Identity) {
	delete(r.Owners, identity)
}

// CanTransferMastership checks the transfer preconditions: a real,
// different identity that is already an owner.
func (r *Registry) CanTransferMastership(identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new master identity is required")
	}
	if identity == r.Master {
		return dErrors.New(dErrors.CodeConflict, "identity is already master")
	}
	if !r.Owners[identity] {
		return dErrors.New(dErrors.CodeConflict, "new master must already be an owner")
	}
	return nil
}

// ApplyTransferMastership reassigns the master. The prior master keeps
// its owner membership. Call CanTransferMastership first.
func (r *Registry) ApplyTransferMastership(identity id.Identity) {
	r.Master = identity
}
