// Package metrics exposes prometheus counters for instance creation and
// distribution activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values.
const (
	ModeDeterministic = "deterministic"
	ModeSequential    = "sequential"

	AssetNative = "native"
	AssetToken  = "token"

	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

var (
	InstancesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsplit_instances_created_total",
			Help: "Total number of distributor instances created",
		},
		[]string{"mode"},
	)

	Distributions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsplit_distributions_total",
			Help: "Total number of successful distributions",
		},
		[]string{"asset", "trigger"},
	)

	DistributionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsplit_distribution_failures_total",
			Help: "Total number of distributions that were reverted",
		},
		[]string{"asset", "reason"},
	)

	RecipientTableUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revsplit_recipient_table_updates_total",
		Help: "Total number of recipient tables installed or replaced",
	})

	PlatformFeeChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revsplit_platform_fee_changes_total",
		Help: "Total number of platform fee or wallet changes",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
