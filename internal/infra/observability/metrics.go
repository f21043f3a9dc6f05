package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	syncRecords     *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
	remoteErrors    *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// SyncSnapshot is a point-in-time view of the sync counters, suitable for
// the GET /v1/metrics/sync endpoint.
type SyncSnapshot struct {
	InvoicesSynced  float64 `json:"invoices_synced"`
	InvoicesFailed  float64 `json:"invoices_failed"`
	PaymentsSynced  float64 `json:"payments_synced"`
	PaymentsFailed  float64 `json:"payments_failed"`
	RemoteSendFails float64 `json:"remote_send_failures"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		syncRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sync_records_total",
				Help: "Records processed by the sync coordinator, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_sync_batch_duration_seconds",
				Help:    "Duration of one sync pass over a record kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		remoteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_remote_errors_total",
				Help: "Total errors from the remote ledger, by operation.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// IncrSyncRecord counts one record's sync attempt outcome ("success"/"failed").
func (m *Metrics) IncrSyncRecord(kind, outcome string) {
	m.syncRecords.WithLabelValues(kind, outcome).Inc()
}

// RecordBatchDuration records the duration of one sync pass.
func (m *Metrics) RecordBatchDuration(kind string, d time.Duration) {
	m.batchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRemoteError increments the remote ledger error counter.
func (m *Metrics) IncrRemoteError(operation string) {
	m.remoteErrors.WithLabelValues(operation).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetSyncSnapshot returns the cumulative sync counters.
// Note: Prometheus counters expose cumulative values.
func (m *Metrics) GetSyncSnapshot() *SyncSnapshot {
	return &SyncSnapshot{
		InvoicesSynced: getCounterValue(m.syncRecords, "invoice", "success"),
		InvoicesFailed: getCounterValue(m.syncRecords, "invoice", "failed"),
		PaymentsSynced: getCounterValue(m.syncRecords, "payment", "success"),
		PaymentsFailed: getCounterValue(m.syncRecords, "payment", "failed"),
		RemoteSendFails: getCounterValue(m.remoteErrors, "send_invoice") +
			getCounterValue(m.remoteErrors, "send_payment"),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
