package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/httputil"
	"salegate/pkg/requestcontext"
)

// Service defines the interface for ownership operations.
type Service interface {
	IsOwner(ctx context.Context, identity id.Identity) (bool, error)
	IsMaster(ctx context.Context, identity id.Identity) (bool, error)
	AddOwner(ctx context.Context, identity id.Identity) error
	RemoveOwner(ctx context.Context, identity id.Identity) error
	TransferMastership(ctx context.Context, identity id.Identity) error
}

// Handler wires ownership endpoints to the ownership service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an ownership handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ownership endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/owners/{identity}", h.HandleGetOwner)
	r.Post("/owners", h.HandleAddOwner)
	r.Delete("/owners/{identity}", h.HandleRemoveOwner)
	r.Post("/owners/transfer", h.HandleTransferMastership)
}

type identityRequest struct {
	Identity string `json:"identity"`
}

type membershipResponse struct {
	Identity string `json:"identity"`
	Owner    bool   `json:"owner"`
	Master   bool   `json:"master"`
}

// HandleGetOwner handles GET /owners/{identity}.
func (h *Handler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	owner, err := h.service.IsOwner(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	master, err := h.service.IsMaster(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, membershipResponse{
		Identity: identity.String(),
		Owner:    owner,
		Master:   master,
	})
}

// HandleAddOwner handles POST /owners.
func (h *Handler) HandleAddOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[identityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	identity, err := id.ParseIdentity(req.Identity)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	if err := h.service.AddOwner(ctx, identity); err != nil {
		h.logger.WarnContext(ctx, "add owner rejected",
			"request_id", requestID,
			"caller", requestcontext.CallerID(ctx),
			"identity", identity,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "owner added",
		"request_id", requestID,
		"caller", requestcontext.CallerID(ctx),
		"identity", identity,
	)
	httputil.WriteJSON(w, http.StatusCreated, membershipResponse{
		Identity: identity.String(),
		Owner:    true,
	})
}

// HandleRemoveOwner handles DELETE /owners/{identity}.
func (h *Handler) HandleRemoveOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	identity, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	if err := h.service.RemoveOwner(ctx, identity); err != nil {
		h.logger.WarnContext(ctx, "remove owner rejected",
			"request_id", requestID,
			"caller", requestcontext.CallerID(ctx),
			"identity", identity,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "owner removed",
		"request_id", requestID,
		"caller", requestcontext.CallerID(ctx),
		"identity", identity,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransferMastership handles POST /owners/transfer.
func (h *Handler) HandleTransferMastership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[identityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	identity, err := id.ParseIdentity(req.Identity)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed identity"))
		return
	}

	if err := h.service.TransferMastership(ctx, identity); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, membershipResponse{
		Identity: identity.String(),
		Owner:    true,
		Master:   true,
	})
}
