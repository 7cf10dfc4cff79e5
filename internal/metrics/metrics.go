// Package metrics exposes prometheus collectors for the asset store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricQuery = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstore_query_duration_seconds",
			Help:    "Query execution duration, by kind.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5},
		},
		[]string{
			"kind", // page, count
		},
	)
	metricBulk = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstore_bulk_change_total",
			Help: "Bulk change requests, by result.",
		},
		[]string{
			"result", // ok, nomatch, unique, required, invalid, error
		},
	)
	metricBulkRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assetstore_bulk_change_records_total",
			Help: "Records mutated by bulk changes.",
		},
	)
	metricColumnsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstore_schema_columns_added_total",
			Help: "Columns added by schema synchronization, by table.",
		},
		[]string{
			"table",
		},
	)
	metricSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstore_schema_sync_total",
			Help: "Schema synchronizations, by result.",
		},
		[]string{
			"result", // changed, unchanged, error
		},
	)
	metricBusyRetry = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstore_busy_retry_total",
			Help: "Retries after the database reported it was busy, by operation.",
		},
		[]string{
			"op",
		},
	)
)

// QueryObserve records how long a query took.
func QueryObserve(kind string, start time.Time) {
	metricQuery.WithLabelValues(kind).Observe(float64(time.Since(start)) / float64(time.Second))
}

// BulkChange records the outcome of one bulk change and the number of
// records it mutated.
func BulkChange(result string, records int) {
	metricBulk.WithLabelValues(result).Inc()
	if records > 0 {
		metricBulkRecords.Add(float64(records))
	}
}

// ColumnsAdded counts columns created in table.
func ColumnsAdded(table string, n int) {
	metricColumnsAdded.WithLabelValues(table).Add(float64(n))
}

// SchemaSync records the outcome of one synchronization.
func SchemaSync(result string) {
	metricSync.WithLabelValues(result).Inc()
}

// BusyRetryInc counts one retry of op.
func BusyRetryInc(op string) {
	metricBusyRetry.WithLabelValues(op).Inc()
}

// Collectors for tests.
var (
	BulkChangeTotal   = metricBulk
	SchemaSyncTotal   = metricSync
	ColumnsAddedTotal = metricColumnsAdded
	BusyRetryTotal    = metricBusyRetry
)
