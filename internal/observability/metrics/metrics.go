package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "firewatch_"

	resultSuccess = "success"
	resultError   = "error"

	claimResultAccepted = "accepted"
	claimResultConflict = "conflict"
	claimResultTooLate  = "too_late"
	claimResultRejected = "rejected"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	alertEventsTotal *prometheus.CounterVec
	claimResults     *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec

	notificationsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	watchdogOffline prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total sensor feed requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total sensor feed errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Sensor feed latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		alertEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by type",
			},
			[]string{"event"},
		)
		claimResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "claim_results_total",
				Help: "Total station claim attempts by result",
			},
			[]string{"result"},
		)
		escalationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "escalations_total",
				Help: "Total timeout escalations by outcome",
			},
			[]string{"outcome"},
		)

		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total dispatched notifications by channel and result",
			},
			[]string{"channel", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		watchdogOffline = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "watchdog_offline_total",
				Help: "Total devices marked offline by the watchdog",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			alertEventsTotal,
			claimResults,
			escalationsTotal,
			notificationsTotal,
			exportTotal,
			exportLatency,
			watchdogOffline,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records sensor feed duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments sensor feed error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncAlertEvent increments alert lifecycle counters.
func IncAlertEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	if alertEventsTotal != nil {
		alertEventsTotal.WithLabelValues(event).Inc()
	}
}

// IncClaim increments claim attempt counter by result.
func IncClaim(result string) {
	if result == "" {
		result = "unknown"
	}
	if claimResults != nil {
		claimResults.WithLabelValues(result).Inc()
	}
}

// IncEscalation increments escalation counter by outcome.
func IncEscalation(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if escalationsTotal != nil {
		escalationsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncNotification increments notification dispatch counter.
func IncNotification(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(channel, result).Inc()
	}
}

// ObserveExport records report export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// AddWatchdogOffline increments the watchdog offline counter by count.
func AddWatchdogOffline(count int) {
	if count <= 0 {
		return
	}
	if watchdogOffline != nil {
		watchdogOffline.Add(float64(count))
	}
}

// Exported constants for callers.
const (
	IngestResultSuccess = resultSuccess
	IngestResultError   = resultError

	ResultSuccess = resultSuccess
	ResultError   = resultError

	ClaimResultAccepted = claimResultAccepted
	ClaimResultConflict = claimResultConflict
	ClaimResultTooLate  = claimResultTooLate
	ClaimResultRejected = claimResultRejected

	EscalationOutcomeAssigned = "assigned"
	EscalationOutcomeStalled  = "stalled"
)
