package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "vitals_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	aggregateQueries *prometheus.CounterVec
	aggregateLatency *prometheus.HistogramVec

	timezoneFallbacks *prometheus.CounterVec

	measurementsStored prometheus.GaugeFunc
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		aggregateQueries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregate_queries_total",
				Help: "Total aggregate queries by operation and result",
			},
			[]string{"operation", "result"},
		)
		aggregateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregate_query_latency_seconds",
				Help:    "Aggregate query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)

		timezoneFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "timezone_fallbacks_total",
				Help: "Zone resolutions that degraded past the tzdb lookup, by stage",
			},
			[]string{"stage"},
		)

		collectors := []prometheus.Collector{
			ingestRequests,
			ingestErrors,
			ingestLatency,
			aggregateQueries,
			aggregateLatency,
			timezoneFallbacks,
		}

		if db != nil {
			measurementsStored = prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: metricPrefix + "measurements_stored",
					Help: "Total measurement records in storage",
				},
				func() float64 {
					var count float64
					if err := db.QueryRow(`SELECT COUNT(*) FROM measurements`).Scan(&count); err != nil {
						if logger != nil {
							logger.Printf("metrics: measurement count error: %v", err)
						}
						return 0
					}
					return count
				},
			)
			collectors = append(collectors, measurementsStored)
		}

		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if logger != nil {
					logger.Printf("metrics: register error: %v", err)
				}
			}
		}
	})
}

// ObserveIngest records one ingest attempt.
func ObserveIngest(success bool, duration time.Duration) {
	if ingestRequests == nil || ingestLatency == nil {
		return
	}
	result := resultSuccess
	if !success {
		result = resultError
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// IngestError records one classified ingest failure.
func IngestError(reason string) {
	if ingestErrors == nil || reason == "" {
		return
	}
	ingestErrors.WithLabelValues(reason).Inc()
}

// TimezoneFallback records one zone resolution that fell past the tzdb.
func TimezoneFallback(stage string) {
	if timezoneFallbacks == nil || stage == "" {
		return
	}
	timezoneFallbacks.WithLabelValues(stage).Inc()
}

// ObserveAggregateQuery records one aggregate read.
func ObserveAggregateQuery(operation string, success bool, duration time.Duration) {
	if aggregateQueries == nil || aggregateLatency == nil {
		return
	}
	result := resultSuccess
	if !success {
		result = resultError
	}
	aggregateQueries.WithLabelValues(operation, result).Inc()
	aggregateLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
