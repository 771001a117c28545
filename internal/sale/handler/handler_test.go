package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"salegate/internal/asset"
	"salegate/internal/ownership"
	ownershipstore "salegate/internal/ownership/store"
	"salegate/internal/pricing"
	"salegate/internal/sale"
	salestore "salegate/internal/sale/store"
	"salegate/internal/salewindow"
	id "salegate/pkg/domain"
	"salegate/pkg/requestcontext"
	"salegate/pkg/testutil"
)

const (
	masterHex = "0x00000000000000000000000000000000000000a1"
	ownerHex  = "0x00000000000000000000000000000000000000a2"
	buyerHex  = "0x00000000000000000000000000000000000000b1"
	friendHex = "0x00000000000000000000000000000000000000b2"
)

var (
	windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	duringSale  = windowStart.Add(24 * time.Hour)
	afterSale   = windowEnd.Add(time.Hour)
)

var supplyCap = id.NewAmount(1_969_800_000_000_000)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	vault  *asset.InMemoryVault
}

func (s *HandlerSuite) SetupTest() {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	master, err := id.ParseIdentity(masterHex)
	require.NoError(s.T(), err)
	ownerIdentity, err := id.ParseIdentity(ownerHex)
	require.NoError(s.T(), err)

	ownershipService := ownership.New(ownershipstore.NewInMemory(), ownership.WithLogger(discard))
	require.NoError(s.T(), ownershipService.Bootstrap(context.Background(), master))
	masterCtx := requestcontext.WithCallerID(context.Background(), master)
	require.NoError(s.T(), ownershipService.AddOwner(masterCtx, ownerIdentity))

	s.vault = asset.NewInMemoryVault(supplyCap)
	service := sale.New(
		salestore.NewInMemory(),
		ownershipService,
		s.vault,
		salewindow.NewWindow(windowStart, windowEnd),
		salewindow.NewMemoryPause(),
		pricing.New(400),
		sale.Config{
			SupplyCap:            supplyCap,
			InitialStage:         id.StageEarly,
			VerificationRequired: true,
		},
		sale.WithLogger(discard),
	)
	require.NoError(s.T(), service.Bootstrap(context.Background()))

	h := New(service, discard)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) verify(identities ...string) {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/verification/batch",
		map[string]any{"identities": identities, "verified": true})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *HandlerSuite) TestQuote() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/quote",
		map[string]any{"payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "quote", "2200")
}

func (s *HandlerSuite) TestQuote_BelowMinimum() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/quote",
		map[string]any{"payment": id.NewAmount(1)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_failed")
}

func (s *HandlerSuite) TestQuote_WindowClosed() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/quote",
		map[string]any{"payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, afterSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invariant_violation")
}

func (s *HandlerSuite) TestQuote_MalformedBody() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/sale/quote", "{")
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestPurchase() {
	s.verify(buyerHex)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/purchase",
		map[string]any{"payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "beneficiary", buyerHex)
	testutil.AssertJSONContains(s.T(), rr, "quote", "2200")

	order := testutil.NewRequest(s.T(), http.MethodGet, "/sale/orders/"+buyerHex)
	order = testutil.WithCaller(order, buyerHex)
	order = testutil.WithRequestTime(order, duringSale)
	rr = testutil.DoRequest(s.router, order)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "pending_asset", "2200")
	testutil.AssertJSONContains(s.T(), rr, "contributed", id.NativeUnits(5).String())
	testutil.AssertJSONContains(s.T(), rr, "verified", true)
}

func (s *HandlerSuite) TestPurchase_ForBeneficiary() {
	s.verify(friendHex)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/purchase",
		map[string]any{"beneficiary": friendHex, "payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "beneficiary", friendHex)
}

func (s *HandlerSuite) TestPurchase_MalformedBeneficiary() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/purchase",
		map[string]any{"beneficiary": "bogus", "payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_input")
}

func (s *HandlerSuite) TestPurchase_UnverifiedConflict() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/purchase",
		map[string]any{"payment": id.NativeUnits(5)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestClaim() {
	s.verify(buyerHex)

	buy := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/purchase",
		map[string]any{"payment": id.NativeUnits(5)})
	buy = testutil.WithCaller(buy, buyerHex)
	buy = testutil.WithRequestTime(buy, duringSale)
	testutil.DoRequest(s.router, buy)

	claim := testutil.NewRequest(s.T(), http.MethodPost, "/sale/claim")
	claim = testutil.WithCaller(claim, buyerHex)
	claim = testutil.WithRequestTime(claim, duringSale)
	rr := testutil.DoRequest(s.router, claim)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "claimed", "2200")

	buyer, err := id.ParseIdentity(buyerHex)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2200", s.vault.BalanceOf(buyer).String())
}

func (s *HandlerSuite) TestClaim_NothingPending() {
	s.verify(buyerHex)

	claim := testutil.NewRequest(s.T(), http.MethodPost, "/sale/claim")
	claim = testutil.WithCaller(claim, buyerHex)
	claim = testutil.WithRequestTime(claim, duringSale)
	rr := testutil.DoRequest(s.router, claim)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestSetStage() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/stage",
		map[string]any{"stage": int(id.StageMain)})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	status := testutil.NewRequest(s.T(), http.MethodGet, "/sale/status")
	status = testutil.WithRequestTime(status, duringSale)
	rr = testutil.DoRequest(s.router, status)
	testutil.AssertJSONContains(s.T(), rr, "stage_name", "main")
}

func (s *HandlerSuite) TestSetStage_InvalidCode() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/stage",
		map[string]any{"stage": 7})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_failed")
}

func (s *HandlerSuite) TestSetStage_NonOwnerForbidden() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/stage",
		map[string]any{"stage": int(id.StageMain)})
	req = testutil.WithCaller(req, buyerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *HandlerSuite) TestSetVerified() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/verification",
		map[string]any{"identity": buyerHex, "verified": true})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *HandlerSuite) TestSetVerifiedBatch() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/verification/batch",
		map[string]any{"identities": []string{buyerHex, friendHex}, "verified": true})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "processed", float64(2))
}

func (s *HandlerSuite) TestSetVerifiedBatch_MalformedIdentity() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/sale/verification/batch",
		map[string]any{"identities": []string{buyerHex, "bogus"}, "verified": true})
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_input")
}

func (s *HandlerSuite) TestRefundFlow() {
	approve := testutil.NewRequest(s.T(), http.MethodPost, "/sale/refund/approve")
	approve = testutil.WithCaller(approve, ownerHex)
	approve = testutil.WithRequestTime(approve, afterSale)
	rr := testutil.DoRequest(s.router, approve)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	refund := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/refund",
		map[string]any{"destination": masterHex})
	refund = testutil.WithCaller(refund, ownerHex)
	refund = testutil.WithRequestTime(refund, afterSale)
	rr = testutil.DoRequest(s.router, refund)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "destination", masterHex)
	testutil.AssertJSONContains(s.T(), rr, "refunded", supplyCap.String())
}

func (s *HandlerSuite) TestRefund_BeforeCloseConflict() {
	approve := testutil.NewRequest(s.T(), http.MethodPost, "/sale/refund/approve")
	approve = testutil.WithCaller(approve, ownerHex)
	approve = testutil.WithRequestTime(approve, duringSale)
	rr := testutil.DoRequest(s.router, approve)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invariant_violation")
}

func (s *HandlerSuite) TestPauseBlocksQuote() {
	pause := testutil.NewRequest(s.T(), http.MethodPost, "/sale/pause")
	pause = testutil.WithCaller(pause, ownerHex)
	pause = testutil.WithRequestTime(pause, duringSale)
	rr := testutil.DoRequest(s.router, pause)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	quote := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/quote",
		map[string]any{"payment": id.NativeUnits(5)})
	quote = testutil.WithCaller(quote, buyerHex)
	quote = testutil.WithRequestTime(quote, duringSale)
	rr = testutil.DoRequest(s.router, quote)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invariant_violation")

	resume := testutil.NewRequest(s.T(), http.MethodPost, "/sale/resume")
	resume = testutil.WithCaller(resume, ownerHex)
	resume = testutil.WithRequestTime(resume, duringSale)
	rr = testutil.DoRequest(s.router, resume)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	quote = testutil.NewJSONRequest(s.T(), http.MethodPost, "/sale/quote",
		map[string]any{"payment": id.NativeUnits(5)})
	quote = testutil.WithCaller(quote, buyerHex)
	quote = testutil.WithRequestTime(quote, duringSale)
	rr = testutil.DoRequest(s.router, quote)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *HandlerSuite) TestOrder_MalformedIdentity() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/sale/orders/bogus")
	req = testutil.WithCaller(req, ownerHex)
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_input")
}

func (s *HandlerSuite) TestCapacity() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/sale/capacity")
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "remaining", supplyCap.String())
}

func (s *HandlerSuite) TestStatus() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/sale/status")
	req = testutil.WithRequestTime(req, duringSale)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "stage_name", "early")
	testutil.AssertJSONContains(s.T(), rr, "open", true)
	testutil.AssertJSONContains(s.T(), rr, "closed", false)
	testutil.AssertJSONContains(s.T(), rr, "paused", false)
	testutil.AssertJSONContains(s.T(), rr, "supply_cap", supplyCap.String())
}
