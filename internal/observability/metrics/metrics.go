package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "station_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	readingRequests *prometheus.CounterVec
	readingErrors   *prometheus.CounterVec
	readingLatency  *prometheus.HistogramVec

	threeWayTotal *prometheus.CounterVec

	reconciliationTotal   *prometheus.CounterVec
	reconciliationLatency *prometheus.HistogramVec

	handoverTotal   *prometheus.CounterVec
	handoverLatency *prometheus.HistogramVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	alertSendTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		readingRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reading_requests_total",
				Help: "Total reading submissions by kind and result",
			},
			[]string{"kind", "result"},
		)
		readingErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reading_errors_total",
				Help: "Total reading submission errors by reason",
			},
			[]string{"reason"},
		)
		readingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reading_latency_seconds",
				Help:    "Reading submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		threeWayTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "three_way_validations_total",
				Help: "Total three-way tank validations by verdict",
			},
			[]string{"verdict"},
		)

		reconciliationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tank_reconciliations_total",
				Help: "Total tank reconciliations by verdict",
			},
			[]string{"verdict"},
		)
		reconciliationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tank_reconciliation_latency_seconds",
				Help:    "Tank reconciliation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		handoverTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "shift_handovers_total",
				Help: "Total shift handovers by status",
			},
			[]string{"status"},
		)
		handoverLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "shift_handover_latency_seconds",
				Help:    "Shift handover latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total shift report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Shift report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		alertSendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_sends_total",
				Help: "Total alert deliveries by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			readingRequests,
			readingErrors,
			readingLatency,
			threeWayTotal,
			reconciliationTotal,
			reconciliationLatency,
			handoverTotal,
			handoverLatency,
			reportExportTotal,
			reportExportLatency,
			alertSendTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveReading records reading submission duration and result.
func ObserveReading(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if readingRequests != nil {
		readingRequests.WithLabelValues(kind, result).Inc()
	}
	if readingLatency != nil {
		readingLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// IncReadingError increments the reading error counter.
func IncReadingError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if readingErrors != nil {
		readingErrors.WithLabelValues(reason).Inc()
	}
}

// IncThreeWayVerdict increments the three-way validation counter.
func IncThreeWayVerdict(verdict string) {
	if verdict == "" {
		verdict = "unknown"
	}
	if threeWayTotal != nil {
		threeWayTotal.WithLabelValues(verdict).Inc()
	}
}

// ObserveReconciliation records a reconciliation run.
func ObserveReconciliation(verdict, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reconciliationTotal != nil && verdict != "" {
		reconciliationTotal.WithLabelValues(verdict).Inc()
	}
	if reconciliationLatency != nil {
		reconciliationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveHandover records a handover submission.
func ObserveHandover(status, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if handoverTotal != nil && status != "" {
		handoverTotal.WithLabelValues(status).Inc()
	}
	if handoverLatency != nil {
		handoverLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAlertSend increments the alert delivery counter.
func IncAlertSend(result string) {
	if result == "" {
		result = resultSuccess
	}
	if alertSendTotal != nil {
		alertSendTotal.WithLabelValues(result).Inc()
	}
}
