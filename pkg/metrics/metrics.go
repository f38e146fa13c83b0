// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/GoliasVictor/grpg/pkg/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpg_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpg_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	TableComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grpg_table_compute_duration_seconds",
			Help:    "Duration of table computations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	TableAnchors = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grpg_table_anchors",
			Help:    "Number of rows produced per table computation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	RelationsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grpg_relations_fetched_total",
			Help: "Total number of edge tuples fetched for table computations",
		},
	)

	OpenStores = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grpg_open_graph_stores",
			Help: "Number of workspace graph stores currently open",
		},
	)
)

// ObserveTable records the stats of one table computation.
func ObserveTable(st table.Stats) {
	TableComputeDuration.Observe(st.Duration.Seconds())
	TableAnchors.Observe(float64(st.Anchors))
	RelationsFetchedTotal.Add(float64(st.Relations))
}
