package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/querykit/report-delivery/internal/store"
	"go.uber.org/zap"
)

type queryLogStatsCollector struct {
	store         store.Store
	totalByStatus *prometheus.Desc
}

// NewQueryLogStatsCollector reports the query-log status distribution
// straight off the database on every scrape.
func NewQueryLogStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_query_logs_%s", reportDelivery, name)
	}

	return &queryLogStatsCollector{
		store: s,
		totalByStatus: prometheus.NewDesc(
			fqName("by_status_total"),
			"Total number of query logs by status.",
			[]string{"status"},
			prometheus.Labels{},
		),
	}
}

func (c *queryLogStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalByStatus
}

// Collect implements Collector.
func (c *queryLogStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.store.Statistics(context.Background())
	if err != nil {
		zap.S().Named("query_log_collector").Errorf("failed to collect query log statistics: %s", err)
		return
	}

	for status, total := range stats.TotalByStatus {
		ch <- prometheus.MustNewConstMetric(c.totalByStatus, prometheus.GaugeValue, float64(total), status)
	}
}
