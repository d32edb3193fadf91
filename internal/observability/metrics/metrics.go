package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "central_"

	// IngestResultSuccess labels a successful ingest request.
	IngestResultSuccess = "success"
	// IngestResultError labels a failed ingest request.
	IngestResultError = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	authRejections *prometheus.CounterVec

	recordsCreated         prometheus.Counter
	departureCloseFailures prometheus.Counter

	anomalyAlerts *prometheus.CounterVec

	reconcileRuns   *prometheus.CounterVec
	reconcileClosed prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total device event ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total device event ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Device event ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		authRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "auth_rejections_total",
				Help: "Total signature gate rejections by reason",
			},
			[]string{"reason"},
		)

		recordsCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "cdr_records_created_total",
				Help: "Total mobility records created",
			},
		)
		departureCloseFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "cdr_departure_close_failures_total",
				Help: "Total failures closing a previous record's departure",
			},
		)

		anomalyAlerts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "anomaly_alerts_total",
				Help: "Total anomaly alerts by type",
			},
			[]string{"type"},
		)

		reconcileRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		)
		reconcileClosed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_closed_departures_total",
				Help: "Total dangling departures closed by reconciliation",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			authRejections,
			recordsCreated,
			departureCloseFailures,
			anomalyAlerts,
			reconcileRuns,
			reconcileClosed,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = IngestResultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncAuthRejection increments signature gate rejection counter.
func IncAuthRejection(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if authRejections != nil {
		authRejections.WithLabelValues(reason).Inc()
	}
}

// IncRecordCreated increments the created record counter.
func IncRecordCreated() {
	if recordsCreated != nil {
		recordsCreated.Inc()
	}
}

// IncDepartureCloseFailure increments the close-out failure counter.
func IncDepartureCloseFailure() {
	if departureCloseFailures != nil {
		departureCloseFailures.Inc()
	}
}

// IncAnomalyAlert increments the anomaly counter for an alert type.
func IncAnomalyAlert(alertType string) {
	if alertType == "" {
		alertType = "unknown"
	}
	if anomalyAlerts != nil {
		anomalyAlerts.WithLabelValues(alertType).Inc()
	}
}

// ObserveReconcile records a reconciliation run.
func ObserveReconcile(result string, closed int64) {
	if result == "" {
		result = IngestResultSuccess
	}
	if reconcileRuns != nil {
		reconcileRuns.WithLabelValues(result).Inc()
	}
	if closed > 0 && reconcileClosed != nil {
		reconcileClosed.Add(float64(closed))
	}
}
