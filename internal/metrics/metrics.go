// Package metrics holds the Prometheus collectors of the analysis service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pairstat/domain/study"
)

var (
	// analysisRuns counts completed analyses by mode and main test branch
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairstat_analysis_runs_total",
		Help: "Completed analyses by mode and main test",
	}, []string{"mode", "main_test"})

	// analysisDuration tracks load-to-report latency
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairstat_analysis_duration_seconds",
		Help:    "Analysis duration in seconds, loading included",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// subResultStatus counts report sections by status
	subResultStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairstat_subresult_status_total",
		Help: "Report sub-results by section and status",
	}, []string{"section", "status"})

	// analysisErrors counts analyses that produced no report
	analysisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairstat_analysis_errors_total",
		Help: "Analyses that failed before a report existed, by error code",
	}, []string{"code"})
)

// ObserveReport records one finished report
func ObserveReport(r *study.Report, seconds float64) {
	analysisRuns.WithLabelValues(string(r.Mode), string(r.MainTest.Kind)).Inc()
	analysisDuration.Observe(seconds)

	subResultStatus.WithLabelValues("normality", statusLabel(r.Normality.Status)).Inc()
	subResultStatus.WithLabelValues("main_test", statusLabel(r.MainTest.Status)).Inc()
	subResultStatus.WithLabelValues("correlations", statusLabel(r.Correlations.Status)).Inc()
	subResultStatus.WithLabelValues("goodness_of_fit", statusLabel(r.GoodnessOfFit.Status)).Inc()
	for _, c := range r.Categories {
		subResultStatus.WithLabelValues("category", statusLabel(c.Status)).Inc()
	}
}

// ObserveError records an analysis that failed
func ObserveError(code string) {
	analysisErrors.WithLabelValues(code).Inc()
}

func statusLabel(s study.Status) string {
	if s == "" {
		return "unset"
	}
	return string(s)
}
