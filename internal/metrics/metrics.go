// Package metrics provides Prometheus metrics for the fundamentals pipeline.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SourceFetchesTotal counts upstream fetches by outcome (ok or an error type).
	SourceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetches_total",
			Help: "Total number of upstream fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// SourceFetchDuration is a histogram of upstream fetch latencies, pacing included.
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of upstream fetches including the pacing pause",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"source"},
	)

	// CacheLookupsTotal counts cache lookups by result (hit or miss).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"source", "result"},
	)

	// TickersProcessedTotal counts merged tickers, degraded when any source failed.
	TickersProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickers_processed_total",
			Help: "Total number of tickers merged by the pipeline",
		},
		[]string{"status"},
	)
)

// Init registers all metrics with reg. Metrics already registered are left alone.
func Init(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		SourceFetchesTotal,
		SourceFetchDuration,
		CacheLookupsTotal,
		TickersProcessedTotal,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordFetch records one upstream fetch.
func RecordFetch(source, outcome string, duration time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, outcome).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(source, result).Inc()
}

// RecordTicker records a merged ticker.
func RecordTicker(degraded bool) {
	status := "complete"
	if degraded {
		status = "degraded"
	}
	TickersProcessedTotal.WithLabelValues(status).Inc()
}
