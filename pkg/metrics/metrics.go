package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	reportDelivery = "report_delivery"

	reportsProcessedTotal = "reports_processed_total"
	artifactsCleanedTotal = "artifacts_cleaned_total"

	// Labels
	outcomeLabel = "outcome"
	stageLabel   = "stage"
)

const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

var reportsProcessedLabels = []string{
	outcomeLabel,
	stageLabel,
}

/**
* Metrics definition
**/
var reportsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reportDelivery,
		Name:      reportsProcessedTotal,
		Help:      "number of report jobs processed, by outcome and failing stage",
	},
	reportsProcessedLabels,
)

var artifactsCleanedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: reportDelivery,
		Name:      artifactsCleanedTotal,
		Help:      "number of artifacts removed by scheduled cleanup",
	},
)

// IncreaseReportsProcessedMetric records one processed job. Stage is empty
// for delivered reports and names the failing pipeline step otherwise.
func IncreaseReportsProcessedMetric(outcome, stage string) {
	labels := prometheus.Labels{
		outcomeLabel: outcome,
		stageLabel:   stage,
	}
	reportsProcessedTotalMetric.With(labels).Inc()
}

func IncreaseArtifactsCleanedMetric() {
	artifactsCleanedTotalMetric.Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(reportsProcessedTotalMetric)
	prometheus.MustRegister(artifactsCleanedTotalMetric)
}
