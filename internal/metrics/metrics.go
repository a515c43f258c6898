// Package metrics exposes Prometheus counters and histograms for the
// analysis pipeline, served over the HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plagscan",
		Name:      "analyses_total",
		Help:      "Total analysis requests by ingest source and outcome",
	}, []string{"source", "outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plagscan",
		Name:      "analysis_duration_seconds",
		Help:      "Wall-clock duration of one analysis request",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"source"})

	filesProcessed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plagscan",
		Name:      "files_processed",
		Help:      "Number of files successfully fingerprinted per analysis",
		Buckets:   []float64{2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"source"})

	pairsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plagscan",
		Name:      "pairs_flagged_total",
		Help:      "Total file pairs flagged above the plagiarism threshold",
	}, []string{"source"})

	judgeCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plagscan",
		Name:      "judge_calls_total",
		Help:      "Total semantic-judge evaluations by verdict",
	}, []string{"verdict"})

	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "plagscan",
		Name:      "cached_analyses",
		Help:      "Number of analyses currently held in the in-memory cache",
	})
)

// RecordAnalysis records one completed or failed analysis request.
func RecordAnalysis(source, outcome string, durationSec float64, fileCount int) {
	analysesTotal.WithLabelValues(source, outcome).Inc()
	if outcome == "ok" {
		analysisDuration.WithLabelValues(source).Observe(durationSec)
		filesProcessed.WithLabelValues(source).Observe(float64(fileCount))
	}
}

// RecordFlaggedPairs adds count newly flagged pairs for source.
func RecordFlaggedPairs(source string, count int) {
	if count <= 0 {
		return
	}
	pairsFlagged.WithLabelValues(source).Add(float64(count))
}

// RecordJudgeVerdict records one semantic-judge call's outcome, either
// "semantic_match" or "no_match".
func RecordJudgeVerdict(isMatch bool) {
	if isMatch {
		judgeCallsTotal.WithLabelValues("semantic_match").Inc()
		return
	}
	judgeCallsTotal.WithLabelValues("no_match").Inc()
}

// SetCacheSize reports the cache's current entry count.
func SetCacheSize(n int) {
	cacheSize.Set(float64(n))
}
