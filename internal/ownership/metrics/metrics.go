package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ownership module.
type Metrics struct {
	OwnersAdded          prometheus.Counter
	OwnersRemoved        prometheus.Counter
	MastershipTransfers  prometheus.Counter
	AuthorizationDenials prometheus.Counter
}

// New creates a Metrics instance with all ownership metrics registered.
func New() *Metrics {
	return &Metrics{
		OwnersAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_owners_added_total",
			Help: "Total number of owner identities added",
		}),
		OwnersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_owners_removed_total",
			Help: "Total number of owner identities removed",
		}),
		MastershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_mastership_transfers_total",
			Help: "Total number of mastership transfers",
		}),
		AuthorizationDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "salegate_ownership_authorization_denials_total",
			Help: "Total number of privileged calls denied by the ownership registry",
		}),
	}
}
