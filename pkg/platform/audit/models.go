package audit

import (
	"time"

	id "salegate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: verification flag changes, ownership changes, refunds.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. Examples: quotes served, stage changes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Every event
// carries the acting identity; quantity and target are set where the
// action has one.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Actor is the identity that invoked the operation.
	Actor id.Identity
	// Target is the identity acted upon (beneficiary, new owner,
	// refund destination), when distinct from the actor.
	Target id.Identity
	// Quantity is the amount involved, as a decimal string of smallest
	// units. Empty when the action has no amount.
	Quantity string
	// Count carries the batch size for aggregate events such as bulk
	// verification updates.
	Count int
	// RequestID is the correlation ID from the request context.
	RequestID string
	// ClientIP and UserAgent record where the request came from, as
	// captured by the client metadata middleware. Empty for internal
	// operations with no HTTP origin.
	ClientIP  string
	UserAgent string
}

// AuditEvent names the actions the ledger emits.
type AuditEvent string

const (
	// Ownership registry events
	EventOwnershipAdded        AuditEvent = "ownership_added"
	EventOwnershipRemoved      AuditEvent = "ownership_removed"
	EventMastershipTransferred AuditEvent = "mastership_transferred"

	// Sale ledger events
	EventSaleOccurred        AuditEvent = "sale_occurred"
	EventClaimOccurred       AuditEvent = "claim_occurred"
	EventStageChanged        AuditEvent = "stage_changed"
	EventVerificationChanged AuditEvent = "verification_changed"
	EventVerificationBatch   AuditEvent = "verification_batch_changed"
	EventRefundApproval      AuditEvent = "refund_approval_changed"
	EventLeftoverRefunded    AuditEvent = "leftover_refunded"
	EventSalePaused          AuditEvent = "sale_paused"
	EventSaleResumed         AuditEvent = "sale_resumed"
)
