// Package ownership implements the registry of privileged identities: a
// single non-removable master plus a set of co-equal owners. Every
// privileged sale ledger mutation is authorized against this registry,
// evaluated per call with no caching.
package ownership

import (
	"context"
	"errors"
	"log/slog"

	ownermetrics "salegate/internal/ownership/metrics"
	"salegate/internal/ownership/models"
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/middleware/metadata"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/requestcontext"
)

// RegistryStore persists the ownership aggregate. Execute runs validate
// then mutate while holding the store's lock (mutex or FOR UPDATE) so
// both observe the same state.
type RegistryStore interface {
	Bootstrap(ctx context.Context, master id.Identity) error
	Get(ctx context.Context) (*models.Registry, error)
	Execute(ctx context.Context, validate func(*models.Registry) error, mutate func(*models.Registry)) (*models.Registry, error)
}

// AuditPublisher records ownership notifications.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates ownership registry operations.
type Service struct {
	registry       RegistryStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *ownermetrics.Metrics
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

func WithMetrics(m *ownermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(registry RegistryStore, opts ...Option) *Service {
	s := &Service{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap seeds the registry with the configured master identity.
func (s *Service) Bootstrap(ctx context.Context, master id.Identity) error {
	if err := s.registry.Bootstrap(ctx, master); err != nil {
		if dErrors.Is(err) {
			return err
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "registry is already bootstrapped with a different master")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap ownership registry")
	}
	return nil
}

// IsOwner reports whether the identity is a member of the owner set.
// Never fails on absent identities; unknown means false.
func (s *Service) IsOwner(ctx context.Context, identity id.Identity) (bool, error) {
	registry, err := s.registry.Get(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ownership registry")
	}
	return registry.IsOwner(identity), nil
}

// IsMaster reports whether the identity is the controlling identity.
func (s *Service) IsMaster(ctx context.Context, identity id.Identity) (bool, error) {
	registry, err := s.registry.Get(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ownership registry")
	}
	return registry.IsMaster(identity), nil
}

// AddOwner grants owner membership to the identity. Master-only.
func (s *Service) AddOwner(ctx context.Context, identity id.Identity) error {
	caller := requestcontext.CallerID(ctx)
	_, err := s.registry.Execute(ctx,
		func(r *models.Registry) error {
			if err := s.requireMaster(r, caller); err != nil {
				return err
			}
			return r.CanAddOwner(identity)
		},
		func(r *models.Registry) {
			r.ApplyAddOwner(identity)
		},
	)
	if err != nil {
		return wrapRegistryErr(err)
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventOwnershipAdded),
		Actor:    caller,
		Target:   identity,
	})
	if s.metrics != nil {
		s.metrics.OwnersAdded.Inc()
	}
	return nil
}

// RemoveOwner revokes owner membership. Master-only; the master itself
// is never removable.
func (s *Service) RemoveOwner(ctx context.Context, identity id.Identity) error {
	caller := requestcontext.CallerID(ctx)
	_, err := s.registry.Execute(ctx,
		func(r *models.Registry) error {
			if err := s.requireMaster(r, caller); err != nil {
				return err
			}
			return r.CanRemoveOwner(identity)
		},
		func(r *models.Registry) {
			r.ApplyRemoveOwner(identity)
		},
	)
	if err != nil {
		return wrapRegistryErr(err)
	}

	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventOwnershipRemoved),
		Actor:    caller,
		Target:   identity,
	})
	if s.metrics != nil {
		s.metrics.OwnersRemoved.Inc()
	}
	return nil
}

// TransferMastership reassigns the controlling identity to an existing
// owner. Master-only. The prior master stays in the owner set.
func (s *Service) TransferMastership(ctx context.Context, identity id.Identity) error {
	caller := requestcontext.CallerID(ctx)
	_, err := s.registry.Execute(ctx,
		func(r *models.Registry) error {
			if err := s.requireMaster(r, caller); err != nil {
				return err
			}
			return r.CanTransferMastership(identity)
		},
		func(r *models.Registry) {
			r.ApplyTransferMastership(identity)
		},
	)
	if err != nil {
		return wrapRegistryErr(err)
	}

	s.logger.InfoContext(ctx, "mastership transferred",
		"request_id", requestcontext.RequestID(ctx),
		"prior_master", caller,
		"new_master", identity,
	)
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventMastershipTransferred),
		Actor:    caller,
		Target:   identity,
	})
	if s.metrics != nil {
		s.metrics.MastershipTransfers.Inc()
	}
	return nil
}

func (s *Service) requireMaster(r *models.Registry, caller id.Identity) error {
	if !r.IsMaster(caller) {
		if s.metrics != nil {
			s.metrics.AuthorizationDenials.Inc()
		}
		return dErrors.New(dErrors.CodeForbidden, "master role required")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = metadata.GetClientIP(ctx)
	event.UserAgent = metadata.GetUserAgent(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit ownership audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func wrapRegistryErr(err error) error {
	if dErrors.Is(err) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ownership registry operation failed")
}
