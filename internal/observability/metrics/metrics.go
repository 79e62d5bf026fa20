package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "books_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	lineMutationTotal   *prometheus.CounterVec
	lineMutationLatency *prometheus.HistogramVec

	statementCloseTotal   *prometheus.CounterVec
	statementCloseLatency *prometheus.HistogramVec

	statementReopenTotal *prometheus.CounterVec

	partnerUpdateTotal   *prometheus.CounterVec
	partnerUpdateLatency *prometheus.HistogramVec

	dashboardTotal   *prometheus.CounterVec
	dashboardLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		lineMutationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "line_mutations_total",
				Help: "Total statement line mutations by op and result",
			},
			[]string{"op", "result"},
		)
		lineMutationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "line_mutation_latency_seconds",
				Help:    "Statement line mutation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		)

		statementCloseTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_close_total",
				Help: "Total statement close operations by kind and result",
			},
			[]string{"kind", "result"},
		)
		statementCloseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_close_latency_seconds",
				Help:    "Statement close latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		statementReopenTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_reopen_total",
				Help: "Total statement reopen operations by kind and result",
			},
			[]string{"kind", "result"},
		)

		partnerUpdateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "partner_statement_updates_total",
				Help: "Total partner statement field updates by result",
			},
			[]string{"result"},
		)
		partnerUpdateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "partner_statement_update_latency_seconds",
				Help:    "Partner statement field update latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		dashboardTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_reads_total",
				Help: "Total dashboard summary reads by result",
			},
			[]string{"result"},
		)
		dashboardLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_read_latency_seconds",
				Help:    "Dashboard summary read latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			lineMutationTotal,
			lineMutationLatency,
			statementCloseTotal,
			statementCloseLatency,
			statementReopenTotal,
			partnerUpdateTotal,
			partnerUpdateLatency,
			dashboardTotal,
			dashboardLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveLineMutation records a line mutation duration and result.
func ObserveLineMutation(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if lineMutationTotal != nil {
		lineMutationTotal.WithLabelValues(op, result).Inc()
	}
	if lineMutationLatency != nil {
		lineMutationLatency.WithLabelValues(op, result).Observe(duration.Seconds())
	}
}

// ObserveStatementClose records close latency and result for a statement kind.
func ObserveStatementClose(kind, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if statementCloseTotal != nil {
		statementCloseTotal.WithLabelValues(kind, result).Inc()
	}
	if statementCloseLatency != nil {
		statementCloseLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObservePartnerUpdate records a partner statement field update.
func ObservePartnerUpdate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if partnerUpdateTotal != nil {
		partnerUpdateTotal.WithLabelValues(result).Inc()
	}
	if partnerUpdateLatency != nil {
		partnerUpdateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncStatementReopen increments the reopen counter for a statement kind.
func IncStatementReopen(kind, result string) {
	if result == "" {
		result = resultSuccess
	}
	if statementReopenTotal != nil {
		statementReopenTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveDashboard records dashboard read latency and result.
func ObserveDashboard(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if dashboardTotal != nil {
		dashboardTotal.WithLabelValues(result).Inc()
	}
	if dashboardLatency != nil {
		dashboardLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	KindProject = "project"
	KindPartner = "partner"
)
