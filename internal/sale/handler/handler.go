package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"salegate/internal/sale"
	"salegate/internal/sale/models"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/httputil"
	pstrings "salegate/pkg/platform/strings"
	"salegate/pkg/requestcontext"
)

// Service is the sale ledger surface the HTTP layer depends on.
type Service interface {
	Quote(ctx context.Context, payment id.Amount) (id.Amount, error)
	Purchase(ctx context.Context, beneficiary id.Identity, payment id.Amount) (id.Amount, error)
	Claim(ctx context.Context) (id.Amount, error)
	SetStage(ctx context.Context, code int) error
	SetVerified(ctx context.Context, identity id.Identity, flag bool) error
	SetVerifiedBatch(ctx context.Context, identities []id.Identity, flag bool) error
	ApproveLeftoverRefund(ctx context.Context) error
	RefundLeftover(ctx context.Context, destination id.Identity) (id.Amount, error)
	OrderOf(ctx context.Context, identity id.Identity) (*models.Order, error)
	RemainingCapacity(ctx context.Context) (id.Amount, error)
	Status(ctx context.Context) (*sale.Status, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/sale", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/capacity", h.capacity)
		r.Post("/quote", h.quote)
		r.Post("/purchase", h.purchase)
		r.Post("/claim", h.claim)
		r.Get("/orders/{identity}", h.order)
		r.Put("/stage", h.setStage)
		r.Put("/verification", h.setVerified)
		r.Put("/verification/batch", h.setVerifiedBatch)
		r.Post("/refund/approve", h.approveRefund)
		r.Post("/refund", h.refundLeftover)
		r.Post("/pause", h.pause)
		r.Post("/resume", h.resume)
	})
}

type paymentRequest struct {
	Payment id.Amount `json:"payment"`
}

type quoteResponse struct {
	Quote id.Amount `json:"quote"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[paymentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	quote, err := h.service.Quote(ctx, req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quoteResponse{Quote: quote})
}

type purchaseRequest struct {
	Beneficiary string    `json:"beneficiary"`
	Payment     id.Amount `json:"payment"`
}

type purchaseResponse struct {
	Beneficiary id.Identity `json:"beneficiary"`
	Quote       id.Amount   `json:"quote"`
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[purchaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// An absent beneficiary means the caller buys for themselves.
	beneficiary := requestcontext.CallerID(ctx)
	if req.Beneficiary != "" {
		parsed, err := id.ParseIdentity(req.Beneficiary)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed identity"))
			return
		}
		beneficiary = parsed
	}

	quote, err := h.service.Purchase(ctx, beneficiary, req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, purchaseResponse{
		Beneficiary: beneficiary,
		Quote:       quote,
	})
}

type claimResponse struct {
	Claimed id.Amount `json:"claimed"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimed, err := h.service.Claim(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claimResponse{Claimed: claimed})
}

type orderResponse struct {
	Identity    id.Identity `json:"identity"`
	Contributed id.Amount   `json:"contributed"`
	Pending     id.Amount   `json:"pending_asset"`
	Verified    bool        `json:"verified"`
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	order, err := h.service.OrderOf(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderResponse{
		Identity:    identity,
		Contributed: order.Contributed,
		Pending:     order.PendingAsset,
		Verified:    order.Verified,
	})
}

type stageRequest struct {
	Stage int `json:"stage"`
}

func (h *Handler) setStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[stageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetStage(ctx, req.Stage); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyRequest struct {
	Identity string `json:"identity"`
	Verified bool   `json:"verified"`
}

func (h *Handler) setVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := id.ParseIdentity(req.Identity)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	if err := h.service.SetVerified(ctx, identity, req.Verified); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyBatchRequest struct {
	Identities []string `json:"identities"`
	Verified   bool     `json:"verified"`
}

type verifyBatchResponse struct {
	Processed int `json:"processed"`
}

func (h *Handler) setVerifiedBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// Repeated or differently-cased entries collapse to one update.
	raws := pstrings.DedupeAndTrimLower(req.Identities)
	identities := make([]id.Identity, 0, len(raws))
	for _, raw := range raws {
		identity, err := id.ParseIdentity(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed identity in batch"))
			return
		}
		identities = append(identities, identity)
	}

	if err := h.service.SetVerifiedBatch(ctx, identities, req.Verified); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyBatchResponse{Processed: len(identities)})
}

func (h *Handler) approveRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.ApproveLeftoverRefund(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refundRequest struct {
	Destination string `json:"destination"`
}

type refundResponse struct {
	Destination id.Identity `json:"destination"`
	Refunded    id.Amount   `json:"refunded"`
}

func (h *Handler) refundLeftover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[refundRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	destination, err := id.ParseIdentity(req.Destination)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	refunded, err := h.service.RefundLeftover(ctx, destination)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, refundResponse{
		Destination: destination,
		Refunded:    refunded,
	})
}

type capacityResponse struct {
	Remaining id.Amount `json:"remaining"`
}

func (h *Handler) capacity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	remaining, err := h.service.RemainingCapacity(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, capacityResponse{Remaining: remaining})
}

type statusResponse struct {
	Stage             int         `json:"stage"`
	StageName         string      `json:"stage_name"`
	Open              bool        `json:"open"`
	Closed            bool        `json:"closed"`
	Paused            bool        `json:"paused"`
	SupplyCap         id.Amount   `json:"supply_cap"`
	TotalAllocated    id.Amount   `json:"total_allocated"`
	RemainingCapacity id.Amount   `json:"remaining_capacity"`
	RefundApproved    bool        `json:"refund_approved"`
	Settlement        id.Identity `json:"settlement_destination"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.Status(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Stage:             int(status.Stage),
		StageName:         status.Stage.String(),
		Open:              status.Open,
		Closed:            status.Closed,
		Paused:            status.Paused,
		SupplyCap:         status.SupplyCap,
		TotalAllocated:    status.TotalAllocated,
		RemainingCapacity: status.RemainingCapacity,
		RefundApproved:    status.RefundApproved,
		Settlement:        status.SettlementDestination,
	})
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Pause(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Resume(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
