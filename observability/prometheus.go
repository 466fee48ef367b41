// Package observability exports docquery metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/optimizer"
)

// PrometheusCollector implements docquery.MetricsCollector.
type PrometheusCollector struct {
	opLatency  *prometheus.HistogramVec
	batchDocs  *prometheus.CounterVec
	results    *prometheus.HistogramVec
	plans      *prometheus.CounterVec
	emptyPlans prometheus.Counter
	fullScans  prometheus.Counter
}

var _ docquery.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. Pass prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docquery_operation_latency_seconds",
			Help:    "Latency of collection operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		batchDocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docquery_batch_documents_total",
			Help: "Documents submitted through batch inserts",
		}, []string{"status"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docquery_query_results",
			Help:    "Documents returned per query",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docquery_plans_total",
			Help: "Planned queries by chosen index",
		}, []string{"index"}),
		emptyPlans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docquery_empty_plans_total",
			Help: "Planned queries whose filter can never match",
		}),
		fullScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docquery_full_scans_total",
			Help: "Planned queries without a usable index",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.batchDocs, c.results, c.plans, c.emptyPlans, c.fullScans} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordInsert implements docquery.MetricsCollector.
func (c *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	c.opLatency.WithLabelValues("insert", status(err)).Observe(d.Seconds())
}

// RecordBatchInsert implements docquery.MetricsCollector.
func (c *PrometheusCollector) RecordBatchInsert(count, failed int, d time.Duration) {
	c.opLatency.WithLabelValues("batch_insert", status(nil)).Observe(d.Seconds())
	c.batchDocs.WithLabelValues("success").Add(float64(count - failed))
	c.batchDocs.WithLabelValues("error").Add(float64(failed))
}

// RecordRemove implements docquery.MetricsCollector.
func (c *PrometheusCollector) RecordRemove(d time.Duration, err error) {
	c.opLatency.WithLabelValues("remove", status(err)).Observe(d.Seconds())
}

// RecordQuery implements docquery.MetricsCollector.
func (c *PrometheusCollector) RecordQuery(kind string, results int, d time.Duration, err error) {
	c.opLatency.WithLabelValues(kind, status(err)).Observe(d.Seconds())
	if err == nil {
		c.results.WithLabelValues(kind).Observe(float64(results))
	}
}

// RecordPlan implements docquery.MetricsCollector.
func (c *PrometheusCollector) RecordPlan(index string, empty bool) {
	switch {
	case empty:
		c.emptyPlans.Inc()
	case index == optimizer.FullScan:
		c.fullScans.Inc()
		c.plans.WithLabelValues(index).Inc()
	default:
		c.plans.WithLabelValues(index).Inc()
	}
}
