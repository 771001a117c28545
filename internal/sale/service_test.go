package sale

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"salegate/internal/asset"
	"salegate/internal/ownership"
	ownershipstore "salegate/internal/ownership/store"
	"salegate/internal/pricing"
	"salegate/internal/sale/mocks"
	"salegate/internal/sale/models"
	salestore "salegate/internal/sale/store"
	"salegate/internal/salewindow"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	auditmemory "salegate/pkg/platform/audit/store/memory"
	"salegate/pkg/platform/middleware/metadata"
	"salegate/pkg/requestcontext"
)

var (
	master = id.Identity("0x00000000000000000000000000000000000000a1")
	owner  = id.Identity("0x00000000000000000000000000000000000000a2")
	buyer  = id.Identity("0x00000000000000000000000000000000000000b1")
	friend = id.Identity("0x00000000000000000000000000000000000000b2")
)

var (
	windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	duringSale  = windowStart.Add(24 * time.Hour)
	beforeSale  = windowStart.Add(-time.Hour)
	afterSale   = windowEnd.Add(time.Hour)
)

// supplyCap is small enough to exhaust in tests but large enough for
// the pricing scenarios.
var supplyCap = id.NewAmount(1_969_800_000_000_000)

type ServiceSuite struct {
	suite.Suite
	service *Service
	vault   *asset.InMemoryVault
	pause   *salewindow.MemoryPause
	sink    *auditmemory.Store
}

func (s *ServiceSuite) SetupTest() {
	ownershipService := ownership.New(ownershipstore.NewInMemory())
	require.NoError(s.T(), ownershipService.Bootstrap(context.Background(), master))
	require.NoError(s.T(), ownershipService.AddOwner(callerAt(master, duringSale), owner))

	s.vault = asset.NewInMemoryVault(supplyCap)
	s.pause = salewindow.NewMemoryPause()
	s.sink = auditmemory.New()

	ledgerStore := salestore.NewInMemory()
	s.service = New(
		ledgerStore,
		ownershipService,
		s.vault,
		salewindow.NewWindow(windowStart, windowEnd),
		s.pause,
		pricing.New(400),
		Config{
			SupplyCap:            supplyCap,
			InitialStage:         id.StageEarly,
			VerificationRequired: true,
		},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(audit.NewPublisher(s.sink)),
	)
	require.NoError(s.T(), s.service.Bootstrap(context.Background()))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func callerAt(identity id.Identity, now time.Time) context.Context {
	ctx := requestcontext.WithCallerID(context.Background(), identity)
	return requestcontext.WithTime(ctx, now)
}

func (s *ServiceSuite) verify(identities ...id.Identity) {
	require.NoError(s.T(), s.service.SetVerifiedBatch(callerAt(owner, duringSale), identities, true))
}

func (s *ServiceSuite) TestQuote() {
	quote, err := s.service.Quote(callerAt(buyer, duringSale), id.NativeUnits(5))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", quote.String(), "5 units in the early stage land on the 10% tier")
}

func (s *ServiceSuite) TestQuote_BelowMinimum() {
	// The early stage requires at least one whole native unit.
	_, err := s.service.Quote(callerAt(buyer, duringSale), id.NewAmount(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestQuote_MinimumDropsAfterEarlyStage() {
	halfUnit, err := id.ParseAmount("500000000000000000")
	require.NoError(s.T(), err)

	_, err = s.service.Quote(callerAt(buyer, duringSale), halfUnit)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation),
		"half a unit is below the early stage minimum")

	require.NoError(s.T(), s.service.SetStage(callerAt(owner, duringSale), int(id.StageMain)))
	quote, err := s.service.Quote(callerAt(buyer, duringSale), halfUnit)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "200", quote.String())
}

func (s *ServiceSuite) TestQuote_WindowClosed() {
	_, err := s.service.Quote(callerAt(buyer, beforeSale), id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = s.service.Quote(callerAt(buyer, afterSale), id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestPurchase() {
	s.verify(buyer)

	quote, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(5))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", quote.String())

	pending, err := s.service.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", pending.String())

	contributed, err := s.service.ContributedOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, contributed.Cmp(id.NativeUnits(5)))

	events := s.sink.Events()
	require.NotEmpty(s.T(), events)
	last := events[len(events)-1]
	assert.Equal(s.T(), string(audit.EventSaleOccurred), last.Action)
	assert.Equal(s.T(), "2200", last.Quantity)
}

func (s *ServiceSuite) TestPurchase_ForBeneficiary() {
	// A third party may fund a verified beneficiary; the allocation goes
	// to the beneficiary, not the payer.
	s.verify(friend)

	_, err := s.service.Purchase(callerAt(buyer, duringSale), friend, id.NativeUnits(2))
	require.NoError(s.T(), err)

	pending, err := s.service.PendingAssetOf(callerAt(friend, duringSale), friend)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "800", pending.String())

	_, err = s.service.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
}

func (s *ServiceSuite) TestPurchase_UnverifiedRejected() {
	_, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestPurchase_Accumulates() {
	s.verify(buyer)

	_, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	require.NoError(s.T(), err)
	_, err = s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	require.NoError(s.T(), err)

	pending, err := s.service.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "800", pending.String())
}

func (s *ServiceSuite) TestPurchase_SupplyCapExhaustion() {
	s.verify(buyer)

	// Shrink the remaining capacity to nearly nothing by buying most of
	// the supply, then verify the guard fires.
	big := New(
		salestore.NewInMemory(),
		s.service.authorizer,
		s.vault,
		salewindow.NewWindow(windowStart, windowEnd),
		s.pause,
		pricing.New(400),
		Config{SupplyCap: id.NewAmount(500), InitialStage: id.StageMain, VerificationRequired: false},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(s.T(), big.Bootstrap(context.Background()))

	_, err := big.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	require.NoError(s.T(), err, "400 of 500 units")

	_, err = big.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	require.Error(s.T(), err, "another 400 would exceed the cap")
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeExhausted))

	remaining, err := big.RemainingCapacity(context.Background())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "100", remaining.String(), "failed purchase leaves no partial state")
}

func (s *ServiceSuite) TestClaim() {
	s.verify(buyer)
	_, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(5))
	require.NoError(s.T(), err)

	claimed, err := s.service.Claim(callerAt(buyer, duringSale))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", claimed.String())
	assert.Equal(s.T(), "2200", s.vault.BalanceOf(buyer).String())

	pending, err := s.service.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.True(s.T(), pending.IsZero())

	_, err = s.service.Claim(callerAt(buyer, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict), "second claim finds nothing")
	assert.Equal(s.T(), "2200", s.vault.BalanceOf(buyer).String(), "no double delivery")
}

func (s *ServiceSuite) TestClaim_NothingPending() {
	s.verify(buyer)
	_, err := s.service.Claim(callerAt(buyer, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestClaim_DeliveryFailureRestoresPending() {
	ctrl := gomock.NewController(s.T())
	failing := mocks.NewMockAssetTransfer(ctrl)
	failing.EXPECT().Deliver(gomock.Any(), buyer, gomock.Any()).Return(errors.New("asset contract reverted"))

	ledgerStore := salestore.NewInMemory()
	svc := New(
		ledgerStore,
		s.service.authorizer,
		failing,
		salewindow.NewWindow(windowStart, windowEnd),
		s.pause,
		pricing.New(400),
		Config{SupplyCap: supplyCap, InitialStage: id.StageEarly, VerificationRequired: false},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(s.T(), svc.Bootstrap(context.Background()))

	_, err := svc.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(5))
	require.NoError(s.T(), err)

	_, err = svc.Claim(callerAt(buyer, duringSale))
	require.Error(s.T(), err)

	pending, err := svc.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", pending.String(), "failed delivery restores the pending allocation")
}

func (s *ServiceSuite) TestClaim_ConcurrentSingleDelivery() {
	s.verify(buyer)
	_, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(5))
	require.NoError(s.T(), err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Claim(callerAt(buyer, duringSale))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, emptied int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			emptied++
		default:
			s.T().Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(s.T(), 1, succeeded, "exactly one racing claim wins")
	assert.Equal(s.T(), 1, emptied, "the loser finds nothing to claim")
	assert.Equal(s.T(), "2200", s.vault.BalanceOf(buyer).String(), "a single delivery for the pending allocation")
}

// flakyLedgerStore fails the next failNext Execute calls, then delegates
// to the in-memory store.
type flakyLedgerStore struct {
	*salestore.InMemory
	failNext int
}

func (f *flakyLedgerStore) Execute(ctx context.Context, touched []id.Identity, validate func(*models.Ledger) error, mutate func(*models.Ledger)) (*models.Ledger, error) {
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("connection reset by peer")
	}
	return f.InMemory.Execute(ctx, touched, validate, mutate)
}

func (s *ServiceSuite) TestClaim_RestoreRetriedAfterStoreFailure() {
	ctrl := gomock.NewController(s.T())
	store := &flakyLedgerStore{InMemory: salestore.NewInMemory()}

	failing := mocks.NewMockAssetTransfer(ctrl)
	failing.EXPECT().Deliver(gomock.Any(), buyer, gomock.Any()).DoAndReturn(
		func(context.Context, id.Identity, id.Amount) error {
			// Drop the store for the first restore attempt only.
			store.failNext = 1
			return errors.New("asset contract reverted")
		})

	svc := New(
		store,
		s.service.authorizer,
		failing,
		salewindow.NewWindow(windowStart, windowEnd),
		s.pause,
		pricing.New(400),
		Config{SupplyCap: supplyCap, InitialStage: id.StageEarly, VerificationRequired: false},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(s.T(), svc.Bootstrap(context.Background()))

	_, err := svc.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(5))
	require.NoError(s.T(), err)

	_, err = svc.Claim(callerAt(buyer, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeExhausted))

	pending, err := svc.PendingAssetOf(callerAt(buyer, duringSale), buyer)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", pending.String(), "the retried restore re-credits the pending allocation")
}

func (s *ServiceSuite) TestSetStage() {
	require.NoError(s.T(), s.service.SetStage(callerAt(owner, duringSale), int(id.StageMain)))

	status, err := s.service.Status(callerAt(buyer, duringSale))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.StageMain, status.Stage)

	// Unordered transitions: back to early is fine.
	require.NoError(s.T(), s.service.SetStage(callerAt(owner, duringSale), int(id.StageEarly)))
}

func (s *ServiceSuite) TestSetStage_InvalidCode() {
	err := s.service.SetStage(callerAt(owner, duringSale), 9)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSetStage_RequiresOwner() {
	err := s.service.SetStage(callerAt(buyer, duringSale), int(id.StageMain))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	anonymous := requestcontext.WithTime(context.Background(), duringSale)
	err = s.service.SetStage(anonymous, int(id.StageMain))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeUnauthorized),
		"anonymous calls are rejected before authorization lookups")
}

func (s *ServiceSuite) TestSetVerifiedBatch_Atomic() {
	err := s.service.SetVerifiedBatch(callerAt(owner, duringSale),
		[]id.Identity{buyer, id.ZeroIdentity, friend}, true)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidInput))

	// Nothing from the failed batch may stick.
	_, err = s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSetVerifiedBatch_SingleEvent() {
	require.NoError(s.T(), s.service.SetVerifiedBatch(callerAt(owner, duringSale),
		[]id.Identity{buyer, friend}, true))

	var batchEvents int
	for _, event := range s.sink.Events() {
		if event.Action == string(audit.EventVerificationBatch) {
			batchEvents++
			assert.Equal(s.T(), 2, event.Count)
		}
	}
	assert.Equal(s.T(), 1, batchEvents, "one aggregate event per batch")
}

func (s *ServiceSuite) TestSetVerified_TargetedEvent() {
	require.NoError(s.T(), s.service.SetVerified(callerAt(owner, duringSale), buyer, true))

	var changed []audit.Event
	for _, event := range s.sink.Events() {
		switch event.Action {
		case string(audit.EventVerificationChanged):
			changed = append(changed, event)
		case string(audit.EventVerificationBatch):
			s.T().Fatal("single updates must not emit the batch action")
		}
	}
	require.Len(s.T(), changed, 1)
	assert.Equal(s.T(), buyer, changed[0].Target)
	assert.Equal(s.T(), owner, changed[0].Actor)
	assert.Zero(s.T(), changed[0].Count)
}

func (s *ServiceSuite) TestAudit_CarriesClientMetadata() {
	ctx := metadata.WithClientMetadata(callerAt(owner, duringSale), "203.0.113.9", "salegate-cli/1.0")
	require.NoError(s.T(), s.service.SetVerified(ctx, buyer, true))

	events := s.sink.Events()
	require.NotEmpty(s.T(), events)
	last := events[len(events)-1]
	assert.Equal(s.T(), "203.0.113.9", last.ClientIP)
	assert.Equal(s.T(), "salegate-cli/1.0", last.UserAgent)
}

func (s *ServiceSuite) TestSetVerified_Revoke() {
	s.verify(buyer)
	require.NoError(s.T(), s.service.SetVerified(callerAt(owner, duringSale), buyer, false))

	_, err := s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRefund_RequiresCloseAndApproval() {
	err := s.service.ApproveLeftoverRefund(callerAt(owner, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation),
		"approval only after the window closes")

	_, err = s.service.RefundLeftover(callerAt(owner, afterSale), master)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict),
		"refund without the approval latch")

	require.NoError(s.T(), s.service.ApproveLeftoverRefund(callerAt(owner, afterSale)))
	require.NoError(s.T(), s.service.ApproveLeftoverRefund(callerAt(owner, afterSale)),
		"repeat approval is a no-op")

	refunded, err := s.service.RefundLeftover(callerAt(owner, afterSale), master)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, refunded.Cmp(supplyCap), "entire unsold holding drains")
	assert.Equal(s.T(), 0, s.vault.BalanceOf(master).Cmp(supplyCap))

	held, err := s.vault.BalanceHeld(context.Background())
	require.NoError(s.T(), err)
	assert.True(s.T(), held.IsZero())

	// Draining again succeeds and moves nothing.
	refunded, err = s.service.RefundLeftover(callerAt(owner, afterSale), master)
	require.NoError(s.T(), err)
	assert.True(s.T(), refunded.IsZero())
}

func (s *ServiceSuite) TestRefund_OwnerGated() {
	err := s.service.ApproveLeftoverRefund(callerAt(buyer, afterSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.RefundLeftover(callerAt(buyer, afterSale), master)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestPause_BlocksEverything() {
	s.verify(buyer)
	require.NoError(s.T(), s.service.Pause(callerAt(owner, duringSale)))

	_, err := s.service.Quote(callerAt(buyer, duringSale), id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.Purchase(callerAt(buyer, duringSale), buyer, id.NativeUnits(1))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = s.service.Claim(callerAt(buyer, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	require.NoError(s.T(), s.service.Resume(callerAt(owner, duringSale)))
	_, err = s.service.Quote(callerAt(buyer, duringSale), id.NativeUnits(1))
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestPause_OwnerGated() {
	err := s.service.Pause(callerAt(buyer, duringSale))
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestAccessors_SelfOrOwnerOnly() {
	s.verify(buyer)

	_, err := s.service.PendingAssetOf(callerAt(friend, duringSale), buyer)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.ContributedOf(callerAt(owner, duringSale), buyer)
	assert.NoError(s.T(), err, "owners may inspect any order")

	_, err = s.service.OrderOf(callerAt(buyer, duringSale), buyer)
	assert.NoError(s.T(), err)
}

func (s *ServiceSuite) TestStatus() {
	status, err := s.service.Status(callerAt(buyer, duringSale))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.StageEarly, status.Stage)
	assert.True(s.T(), status.Open)
	assert.False(s.T(), status.Closed)
	assert.False(s.T(), status.Paused)
	assert.Equal(s.T(), 0, status.RemainingCapacity.Cmp(supplyCap))
	assert.False(s.T(), status.RefundApproved)
}
