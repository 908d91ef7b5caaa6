// Package metrics exposes Prometheus metrics for the dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// Sync core
	ReadBatches  prometheus.Counter
	ReadFailures prometheus.Counter
	ListFetches  prometheus.Counter
	StaleDropped *prometheus.CounterVec

	// Snapshot gauges
	FeeWei prometheus.Gauge
	Paused prometheus.Gauge

	// Deploy command
	Deploys *prometheus.CounterVec
}

// New creates and registers all dashboard metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ReadBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deploydesk_read_batches_total",
				Help: "Fee/paused read batches issued against the factory",
			},
		),

		ReadFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deploydesk_read_failures_total",
				Help: "Fee/paused read batches that surfaced an error",
			},
		),

		ListFetches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deploydesk_list_fetches_total",
				Help: "Deployment list fetches issued",
			},
		),

		StaleDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deploydesk_stale_results_dropped_total",
				Help: "Async results discarded because their generation was superseded",
			},
			[]string{"kind"},
		),

		FeeWei: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deploydesk_deployment_fee_wei",
				Help: "Last fetched deployment fee in wei",
			},
		),

		Paused: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "deploydesk_factory_paused",
				Help: "1 when the factory pause flag is set",
			},
		),

		Deploys: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deploydesk_deploys_total",
				Help: "Deployment submissions by outcome",
			},
			[]string{"outcome"},
		),
	}
}
