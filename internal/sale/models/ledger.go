package models

import (
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

// Order is the per-participant record. Created lazily on first access,
// mutated by purchase, verification toggling, and claim; never deleted.
type Order struct {
	Identity id.Identity
	// Contributed is the cumulative native-currency payment, monotonically
	// non-decreasing.
	Contributed id.Amount
	// PendingAsset is allocated but undelivered asset units; zeroed
	// atomically with delivery.
	PendingAsset id.Amount
	// Verified is the identity-verification flag, settable only by an
	// owner, independent of the monetary fields.
	Verified bool
}

// NewOrder returns the zero-valued order for an identity.
func NewOrder(identity id.Identity) *Order {
	return &Order{
		Identity:     identity,
		Contributed:  id.ZeroAmount(),
		PendingAsset: id.ZeroAmount(),
	}
}

// Ledger is the aggregate root for the sale: all order records plus the
// supply counters and the stage/refund state machine.
//
// Invariants:
//   - TotalAllocated never exceeds SupplyCap
//   - TotalAllocated is the sum of all successful purchase quotes
//   - RefundApproved is a one-way latch
//   - Contributed and PendingAsset never decrease except PendingAsset
//     zeroing on claim
type Ledger struct {
	Stage          id.Stage
	SupplyCap      id.Amount
	TotalAllocated id.Amount
	RefundApproved bool
	Orders         map[id.Identity]*Order
}

// NewLedger builds the initial sale state with a fixed supply cap.
func NewLedger(supplyCap id.Amount, stage id.Stage) *Ledger {
	return &Ledger{
		Stage:          stage,
		SupplyCap:      supplyCap,
		TotalAllocated: id.ZeroAmount(),
		Orders:         make(map[id.Identity]*Order),
	}
}

// OrderFor returns the order record for an identity, creating the
// zero-valued record on first access.
func (l *Ledger) OrderFor(identity id.Identity) *Order {
	if order, ok := l.Orders[identity]; ok {
		return order
	}
	order := NewOrder(identity)
	l.Orders[identity] = order
	return order
}

// RemainingCapacity is the unallocated portion of the supply cap.
func (l *Ledger) RemainingCapacity() id.Amount {
	remaining, err := l.SupplyCap.Sub(l.TotalAllocated)
	if err != nil {
		// TotalAllocated is guarded against exceeding the cap on every
		// purchase, so underflow cannot happen.
		return id.ZeroAmount()
	}
	return remaining
}

// CanAllocate checks both supply guards for a prospective quote: the
// running-total guard and the remaining-capacity guard. They bound the
// same quantity from two directions; both are kept as defense in depth.
func (l *Ledger) CanAllocate(quote id.Amount) error {
	prospective := l.TotalAllocated.Add(quote)
	if prospective.Cmp(l.SupplyCap) > 0 {
		return dErrors.New(dErrors.CodeExhausted, "purchase would exceed the supply cap")
	}
	if quote.Cmp(l.RemainingCapacity()) > 0 {
		return dErrors.New(dErrors.CodeExhausted, "quote exceeds remaining supply")
	}
	return nil
}

// CanPurchase checks the beneficiary-side purchase preconditions.
func (l *Ledger) CanPurchase(beneficiary id.Identity, verificationRequired bool) error {
	if beneficiary.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "beneficiary identity is required")
	}
	if verificationRequired && !l.OrderFor(beneficiary).Verified {
		return dErrors.New(dErrors.CodeConflict, "beneficiary is not verified")
	}
	return nil
}

// ApplyPurchase records a successful purchase: the beneficiary's
// contribution and pending allocation grow together with the aggregate
// allocation counter.
func (l *Ledger) ApplyPurchase(beneficiary id.Identity, payment, quote id.Amount) {
	order := l.OrderFor(beneficiary)
	order.Contributed = order.Contributed.Add(payment)
	order.PendingAsset = order.PendingAsset.Add(quote)
	l.TotalAllocated = l.TotalAllocated.Add(quote)
}

// CanClaim checks the claim preconditions for a caller's order.
func (l *Ledger) CanClaim(caller id.Identity, verificationRequired bool) error {
	order := l.OrderFor(caller)
	if verificationRequired && !order.Verified {
		return dErrors.New(dErrors.CodeConflict, "identity is not verified")
	}
	if order.PendingAsset.IsZero() {
		return dErrors.New(dErrors.CodeConflict, "nothing to claim")
	}
	return nil
}

// ApplyClaim zeroes the pending allocation and returns the claimed
// amount. The caller must request delivery only after this runs, so a
// reentrant delivery callback observes zero pending.
func (l *Ledger) ApplyClaim(caller id.Identity) id.Amount {
	order := l.OrderFor(caller)
	claimed := order.PendingAsset
	order.PendingAsset = id.ZeroAmount()
	return claimed
}

// CanSetStage validates a stage transition. Transitions are unordered:
// any valid stage may follow any other.
func (l *Ledger) CanSetStage(stage id.Stage) error {
	if !stage.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid stage code: %d", int(stage))
	}
	return nil
}

// ApplySetStage replaces the pricing stage.
func (l *Ledger) ApplySetStage(stage id.Stage) {
	l.Stage = stage
}

// CanSetVerified validates a verification flag update target.
func (l *Ledger) CanSetVerified(identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	return nil
}

// ApplySetVerified sets the verification flag on the identity's order.
func (l *Ledger) ApplySetVerified(identity id.Identity, flag bool) {
	l.OrderFor(identity).Verified = flag
}

// ApplyRefundApproval latches the leftover-refund approval. Setting it
// again is a no-op, not an error.
func (l *Ledger) ApplyRefundApproval() {
	l.RefundApproved = true
}

// CanRefundLeftover checks the refund latch and destination.
func (l *Ledger) CanRefundLeftover(destination id.Identity) error {
	if destination.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "refund destination is required")
	}
	if !l.RefundApproved {
		return dErrors.New(dErrors.CodeConflict, "leftover refund has not been approved")
	}
	return nil
}
