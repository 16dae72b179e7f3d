// Package metrics holds corpusdb's in-process Prometheus registry. There
// is no HTTP endpoint exposing it (scraping is out of scope); it exists
// so a caller that links corpusdb as a library, or a future `cdb stats
// --metrics` path, can read the counters directly off the default
// registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	indexRunsTotal    prometheus.Counter
	indexFilesTotal   prometheus.Counter
	indexErrorsTotal  prometheus.Counter
	indexDuration     prometheus.Histogram
	searchQueryTotal  *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func initMetrics() {
	once.Do(func() {
		indexRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdb_index_runs_total", Help: "Indexing pipeline runs started",
		})
		indexFilesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdb_index_files_total", Help: "Files persisted across all indexing runs",
		})
		indexErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdb_index_errors_total", Help: "Indexing pipeline runs that returned an error",
		})
		indexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "corpusdb_index_duration_seconds", Help: "Indexing pipeline run duration", Buckets: durationBuckets,
		})
		searchQueryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpusdb_search_queries_total", Help: "Search calls by scope",
		}, []string{"scope"})
		searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "corpusdb_search_duration_seconds", Help: "Search call duration by scope", Buckets: durationBuckets,
		}, []string{"scope"})

		prometheus.MustRegister(
			indexRunsTotal, indexFilesTotal, indexErrorsTotal, indexDuration,
			searchQueryTotal, searchDuration,
		)
	})
}

// RecordIndexRun tallies one indexing pipeline run's outcome and duration.
func RecordIndexRun(filesIndexed int, err error, duration time.Duration) {
	initMetrics()
	indexRunsTotal.Inc()
	indexFilesTotal.Add(float64(filesIndexed))
	if err != nil {
		indexErrorsTotal.Inc()
	}
	indexDuration.Observe(duration.Seconds())
}

// RecordSearch tallies one search call's duration under scope (e.g.
// "code", "symbols", "decisions"; "code" when no scope was requested, the
// scope Search falls back to).
func RecordSearch(scope string, duration time.Duration) {
	initMetrics()
	searchQueryTotal.WithLabelValues(scope).Inc()
	searchDuration.WithLabelValues(scope).Observe(duration.Seconds())
}
