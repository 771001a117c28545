// Package sale implements the sale ledger: per-participant orders,
// staged pricing, supply accounting, and the two-phase release of
// unsold inventory. Privileged mutations are authorized against the
// ownership registry; every mutation runs behind a single mutex so no
// two operations interleave on the same order or aggregate counters.
package sale

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"salegate/internal/sale/metrics"
	"salegate/internal/sale/models"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/middleware/metadata"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/requestcontext"
)

// LedgerStore persists the sale aggregate and order records. Execute
// runs validate then mutate while holding the store's lock (mutex or
// FOR UPDATE on the aggregate row) so both observe the same state.
type LedgerStore interface {
	Init(ctx context.Context, supplyCap id.Amount, stage id.Stage) error
	View(ctx context.Context, identities ...id.Identity) (*models.Ledger, error)
	Execute(ctx context.Context, touched []id.Identity, validate func(*models.Ledger) error, mutate func(*models.Ledger)) (*models.Ledger, error)
}

// Authorizer is the ownership registry capability the ledger composes
// by reference. Evaluated per call, never cached.
type Authorizer interface {
	IsOwner(ctx context.Context, identity id.Identity) (bool, error)
	IsMaster(ctx context.Context, identity id.Identity) (bool, error)
}

// AssetTransfer delivers purchased units and reports the undelivered
// balance. See internal/asset for the boundary contract.
type AssetTransfer interface {
	Deliver(ctx context.Context, to id.Identity, amount id.Amount) error
	BalanceHeld(ctx context.Context) (id.Amount, error)
}

// Window is the sale's open/close boundary, evaluated at call time.
type Window interface {
	IsOpen(now time.Time) bool
	HasClosed(now time.Time) bool
}

// PauseSwitch is the global halt checked before every operation.
type PauseSwitch interface {
	IsPaused(ctx context.Context) (bool, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// PricingPolicy maps (stage, payment) to a conversion rate.
type PricingPolicy interface {
	Rate(stage id.Stage, payment id.Amount) (uint64, error)
}

// AuditPublisher records sale notifications.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Config carries the construction-time sale parameters, immutable
// thereafter.
type Config struct {
	SupplyCap             id.Amount
	InitialStage          id.Stage
	VerificationRequired  bool
	SettlementDestination id.Identity
}

// Service orchestrates the sale ledger state machine.
type Service struct {
	// mu serializes every state-mutating operation, including the
	// delivery step of a claim. The stores lock too; this is the
	// operation-level boundary the ledger's invariants assume.
	mu sync.Mutex

	ledger     LedgerStore
	authorizer Authorizer
	transfer   AssetTransfer
	window     Window
	pause      PauseSwitch
	pricing    PricingPolicy
	cfg        Config

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(
	ledger LedgerStore,
	authorizer Authorizer,
	transfer AssetTransfer,
	window Window,
	pause PauseSwitch,
	pricing PricingPolicy,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		ledger:     ledger,
		authorizer: authorizer,
		transfer:   transfer,
		window:     window,
		pause:      pause,
		pricing:    pricing,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap seeds the ledger with the configured supply cap and stage.
// A ledger that already exists is left untouched so restarts are safe.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.ledger.Init(ctx, s.cfg.SupplyCap, s.cfg.InitialStage); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap sale ledger")
	}
	return nil
}

// halfNativeUnit is the below-one-unit stage minimum (0.5 native units).
// restoreAttempts bounds the retries when re-crediting a pending
// allocation after a failed asset delivery.
const restoreAttempts = 3

var halfNativeUnit = func() id.Amount {
	half, err := id.NewAmountFromBig(new(big.Int).Div(id.NativeUnitScale, big.NewInt(2)))
	if err != nil {
		panic(err)
	}
	return half
}()

func minContribution(stage id.Stage) id.Amount {
	if stage == id.StageEarly {
		return id.NativeUnits(1)
	}
	return halfNativeUnit
}

// Quote computes the asset units a payment would currently buy, without
// mutating anything. Requires the sale to be open and not paused.
func (s *Service) Quote(ctx context.Context, payment id.Amount) (id.Amount, error) {
	start := time.Now()
	if err := s.requireNotPaused(ctx); err != nil {
		return id.Amount{}, err
	}
	if err := s.requireOpen(ctx); err != nil {
		return id.Amount{}, err
	}

	ledger, err := s.ledger.View(ctx)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}

	quote, err := s.quoteFor(ledger.Stage, payment)
	if err != nil {
		return id.Amount{}, err
	}
	if quote.Cmp(ledger.RemainingCapacity()) > 0 {
		return id.Amount{}, dErrors.New(dErrors.CodeExhausted, "quote exceeds remaining supply")
	}

	if s.metrics != nil {
		s.metrics.ObserveQuote(start)
	}
	return quote, nil
}

// quoteFor enforces the stage minimum and converts the payment at the
// stage rate.
func (s *Service) quoteFor(stage id.Stage, payment id.Amount) (id.Amount, error) {
	if payment.Cmp(minContribution(stage)) < 0 {
		return id.Amount{}, dErrors.New(dErrors.CodeValidation, "payment is below the stage minimum contribution")
	}
	rate, err := s.pricing.Rate(stage, payment)
	if err != nil {
		return id.Amount{}, err
	}
	return payment.MulRate(rate), nil
}

// Purchase validates and records an order for the beneficiary. It does
// not move funds or assets; the settlement collaborator is invoked by
// the caller after this accounting step succeeds.
func (s *Service) Purchase(ctx context.Context, beneficiary id.Identity, payment id.Amount) (id.Amount, error) {
	start := time.Now()
	caller := requestcontext.CallerID(ctx)

	if err := s.requireNotPaused(ctx); err != nil {
		return id.Amount{}, err
	}
	if err := s.requireOpen(ctx); err != nil {
		return id.Amount{}, err
	}
	if !payment.IsPositive() {
		return id.Amount{}, dErrors.New(dErrors.CodeValidation, "payment amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var quote id.Amount
	_, err := s.ledger.Execute(ctx, []id.Identity{beneficiary},
		func(l *models.Ledger) error {
			q, err := s.quoteFor(l.Stage, payment)
			if err != nil {
				return err
			}
			if err := l.CanAllocate(q); err != nil {
				return err
			}
			if err := l.CanPurchase(beneficiary, s.cfg.VerificationRequired); err != nil {
				return err
			}
			quote = q
			return nil
		},
		func(l *models.Ledger) {
			l.ApplyPurchase(beneficiary, payment, quote)
		},
	)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventSaleOccurred),
		Actor:    caller,
		Target:   beneficiary,
		Quantity: quote.String(),
	})
	if s.metrics != nil {
		s.metrics.Purchases.Inc()
		s.metrics.ObservePurchase(start)
	}
	return quote, nil
}

// Claim delivers the caller's pending allocation. The pending amount is
// zeroed before delivery is requested, so a delivery callback that
// re-enters the ledger observes zero pending and fails with nothing to
// claim.
func (s *Service) Claim(ctx context.Context) (id.Amount, error) {
	caller := requestcontext.CallerID(ctx)
	if caller.IsZero() {
		return id.Amount{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.requireNotPaused(ctx); err != nil {
		return id.Amount{}, err
	}
	if err := s.requireOpen(ctx); err != nil {
		return id.Amount{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed id.Amount
	_, err := s.ledger.Execute(ctx, []id.Identity{caller},
		func(l *models.Ledger) error {
			return l.CanClaim(caller, s.cfg.VerificationRequired)
		},
		func(l *models.Ledger) {
			claimed = l.ApplyClaim(caller)
		},
	)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}

	if err := s.transfer.Deliver(ctx, caller, claimed); err != nil {
		// The whole operation must abort without partial state, so the
		// zeroed pending amount is restored before reporting failure.
		// The restore is retried: losing it strands the allocation, so
		// a final failure is counted for alerting on top of the log.
		var restoreErr error
		for attempt := 0; attempt < restoreAttempts; attempt++ {
			if restoreErr = s.restorePending(ctx, caller, claimed); restoreErr == nil {
				break
			}
		}
		if restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore pending allocation after delivery failure",
				"identity", caller,
				"amount", claimed,
				"attempts", restoreAttempts,
				"error", restoreErr,
			)
			if s.metrics != nil {
				s.metrics.ClaimRestoreFailures.Inc()
			}
		}
		return id.Amount{}, dErrors.Wrap(err, dErrors.CodeExhausted, "asset delivery failed")
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventClaimOccurred),
		Actor:    caller,
		Quantity: claimed.String(),
	})
	if s.metrics != nil {
		s.metrics.Claims.Inc()
	}
	return claimed, nil
}

func (s *Service) restorePending(ctx context.Context, identity id.Identity, amount id.Amount) error {
	_, err := s.ledger.Execute(ctx, []id.Identity{identity},
		func(*models.Ledger) error { return nil },
		func(l *models.Ledger) {
			order := l.OrderFor(identity)
			order.PendingAsset = order.PendingAsset.Add(amount)
		},
	)
	return err
}

// SetStage replaces the pricing stage. Owner-gated, open window only.
// Transitions are unordered: any valid stage may follow any other.
func (s *Service) SetStage(ctx context.Context, code int) error {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireNotPaused(ctx); err != nil {
		return err
	}
	if err := s.requireOpen(ctx); err != nil {
		return err
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}

	stage := id.Stage(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.ledger.Execute(ctx, nil,
		func(l *models.Ledger) error {
			return l.CanSetStage(stage)
		},
		func(l *models.Ledger) {
			l.ApplySetStage(stage)
		},
	)
	if err != nil {
		return wrapLedgerErr(err)
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   string(audit.EventStageChanged),
		Actor:    caller,
		Quantity: stage.String(),
	})
	if s.metrics != nil {
		s.metrics.StageChanges.Inc()
	}
	return nil
}

// SetVerified sets the verification flag for one identity. Owner-gated,
// open window only.
func (s *Service) SetVerified(ctx context.Context, identity id.Identity, flag bool) error {
	return s.setVerifiedBatch(ctx, []id.Identity{identity}, flag, false)
}

// SetVerifiedBatch sets the verification flag for a list of identities
// as one atomic operation: any invalid identity aborts the whole batch.
// One aggregate notification carries the count processed.
func (s *Service) SetVerifiedBatch(ctx context.Context, identities []id.Identity, flag bool) error {
	return s.setVerifiedBatch(ctx, identities, flag, true)
}

func (s *Service) setVerifiedBatch(ctx context.Context, identities []id.Identity, flag bool, bulk bool) error {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireNotPaused(ctx); err != nil {
		return err
	}
	if err := s.requireOpen(ctx); err != nil {
		return err
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if bulk && len(identities) == 0 {
		return dErrors.New(dErrors.CodeValidation, "verification batch is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.ledger.Execute(ctx, identities,
		func(l *models.Ledger) error {
			for _, identity := range identities {
				if err := l.CanSetVerified(identity); err != nil {
					return err
				}
			}
			return nil
		},
		func(l *models.Ledger) {
			for _, identity := range identities {
				l.ApplySetVerified(identity, flag)
			}
		},
	)
	if err != nil {
		return wrapLedgerErr(err)
	}

	event := audit.Event{
		Category: audit.CategoryCompliance,
		Actor:    caller,
	}
	if bulk {
		event.Action = string(audit.EventVerificationBatch)
		event.Count = len(identities)
	} else {
		event.Action = string(audit.EventVerificationChanged)
		event.Target = identities[0]
	}
	s.emit(ctx, event)
	if s.metrics != nil {
		s.metrics.VerifiedBatchSize.Observe(float64(len(identities)))
	}
	return nil
}

// ApproveLeftoverRefund latches the refund approval. Owner-gated, only
// after the sale window closes. Setting it twice is a no-op.
func (s *Service) ApproveLeftoverRefund(ctx context.Context) error {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireNotPaused(ctx); err != nil {
		return err
	}
	if err := s.requireClosed(ctx); err != nil {
		return err
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.ledger.Execute(ctx, nil,
		func(*models.Ledger) error { return nil },
		func(l *models.Ledger) {
			l.ApplyRefundApproval()
		},
	)
	if err != nil {
		return wrapLedgerErr(err)
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventRefundApproval),
		Actor:    caller,
	})
	return nil
}

// RefundLeftover delivers the ledger's entire current asset holding to
// the destination. Owner-gated, post-close, and gated on the approval
// latch. A repeat call with zero balance succeeds and delivers zero.
func (s *Service) RefundLeftover(ctx context.Context, destination id.Identity) (id.Amount, error) {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireNotPaused(ctx); err != nil {
		return id.Amount{}, err
	}
	if err := s.requireClosed(ctx); err != nil {
		return id.Amount{}, err
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return id.Amount{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.ledger.View(ctx)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}
	if err := ledger.CanRefundLeftover(destination); err != nil {
		return id.Amount{}, err
	}

	balance, err := s.transfer.BalanceHeld(ctx)
	if err != nil {
		return id.Amount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read asset balance")
	}
	if balance.IsPositive() {
		if err := s.transfer.Deliver(ctx, destination, balance); err != nil {
			return id.Amount{}, dErrors.Wrap(err, dErrors.CodeExhausted, "leftover delivery failed")
		}
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventLeftoverRefunded),
		Actor:    caller,
		Target:   destination,
		Quantity: balance.String(),
	})
	if s.metrics != nil {
		s.metrics.Refunds.Inc()
	}
	return balance, nil
}

// PendingAssetOf reports the undelivered allocation for an identity.
// Restricted to the identity itself or an owner.
func (s *Service) PendingAssetOf(ctx context.Context, identity id.Identity) (id.Amount, error) {
	if err := s.requireSelfOrOwner(ctx, identity); err != nil {
		return id.Amount{}, err
	}
	ledger, err := s.ledger.View(ctx, identity)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}
	return ledger.OrderFor(identity).PendingAsset, nil
}

// ContributedOf reports the cumulative contribution for an identity.
// Restricted to the identity itself or an owner.
func (s *Service) ContributedOf(ctx context.Context, identity id.Identity) (id.Amount, error) {
	if err := s.requireSelfOrOwner(ctx, identity); err != nil {
		return id.Amount{}, err
	}
	ledger, err := s.ledger.View(ctx, identity)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}
	return ledger.OrderFor(identity).Contributed, nil
}

// OrderOf reports the full order record for an identity. Restricted to
// the identity itself or an owner.
func (s *Service) OrderOf(ctx context.Context, identity id.Identity) (*models.Order, error) {
	if err := s.requireSelfOrOwner(ctx, identity); err != nil {
		return nil, err
	}
	ledger, err := s.ledger.View(ctx, identity)
	if err != nil {
		return nil, wrapLedgerErr(err)
	}
	return ledger.OrderFor(identity), nil
}

// RemainingCapacity reports the unallocated portion of the supply cap.
func (s *Service) RemainingCapacity(ctx context.Context) (id.Amount, error) {
	ledger, err := s.ledger.View(ctx)
	if err != nil {
		return id.Amount{}, wrapLedgerErr(err)
	}
	return ledger.RemainingCapacity(), nil
}

// Status is the observer view of the sale.
type Status struct {
	Stage                 id.Stage
	Open                  bool
	Closed                bool
	Paused                bool
	SupplyCap             id.Amount
	TotalAllocated        id.Amount
	RemainingCapacity     id.Amount
	RefundApproved        bool
	SettlementDestination id.Identity
}

// Status reports the sale's aggregate state and gates.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	ledger, err := s.ledger.View(ctx)
	if err != nil {
		return nil, wrapLedgerErr(err)
	}
	paused, err := s.pause.IsPaused(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause switch")
	}
	now := requestcontext.Now(ctx)
	return &Status{
		Stage:                 ledger.Stage,
		Open:                  s.window.IsOpen(now),
		Closed:                s.window.HasClosed(now),
		Paused:                paused,
		SupplyCap:             ledger.SupplyCap,
		TotalAllocated:        ledger.TotalAllocated,
		RemainingCapacity:     ledger.RemainingCapacity(),
		RefundApproved:        ledger.RefundApproved,
		SettlementDestination: s.cfg.SettlementDestination,
	}, nil
}

// Pause halts every ledger operation. Owner-gated.
func (s *Service) Pause(ctx context.Context) error {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.pause.Pause(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set pause switch")
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   string(audit.EventSalePaused),
		Actor:    caller,
	})
	return nil
}

// Resume lifts the halt. Owner-gated.
func (s *Service) Resume(ctx context.Context) error {
	caller := requestcontext.CallerID(ctx)
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.pause.Resume(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear pause switch")
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   string(audit.EventSaleResumed),
		Actor:    caller,
	})
	return nil
}

func (s *Service) requireNotPaused(ctx context.Context) error {
	paused, err := s.pause.IsPaused(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause switch")
	}
	if paused {
		return dErrors.New(dErrors.CodeInvariantViolation, "sale is paused")
	}
	return nil
}

func (s *Service) requireOpen(ctx context.Context) error {
	if !s.window.IsOpen(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeInvariantViolation, "sale window is not open")
	}
	return nil
}

func (s *Service) requireClosed(ctx context.Context) error {
	if !s.window.HasClosed(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeInvariantViolation, "sale window has not closed")
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, caller id.Identity) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	owner, err := s.authorizer.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !owner {
		return dErrors.New(dErrors.CodeForbidden, "owner role required")
	}
	return nil
}

func (s *Service) requireSelfOrOwner(ctx context.Context, identity id.Identity) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	caller := requestcontext.CallerID(ctx)
	if caller == identity {
		return nil
	}
	return s.requireOwner(ctx, caller)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = metadata.GetClientIP(ctx)
	event.UserAgent = metadata.GetUserAgent(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit sale audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func wrapLedgerErr(err error) error {
	if dErrors.Is(err) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "sale ledger operation failed")
}
