package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/value"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func counterValue(f *dto.MetricFamily, label, val string) float64 {
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == label && l.GetValue() == val {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordInsert(time.Millisecond, nil)
	c.RecordInsert(time.Millisecond, errors.New("boom"))
	c.RecordBatchInsert(10, 3, time.Millisecond)
	c.RecordQuery("execute", 4, time.Millisecond, nil)
	c.RecordPlan("skiplist#1[age]", false)
	c.RecordPlan("full scan", false)
	c.RecordPlan("full scan", true)

	families := gather(t, reg)

	batch := families["docquery_batch_documents_total"]
	require.NotNil(t, batch)
	assert.Equal(t, 7.0, counterValue(batch, "status", "success"))
	assert.Equal(t, 3.0, counterValue(batch, "status", "error"))

	plans := families["docquery_plans_total"]
	require.NotNil(t, plans)
	assert.Equal(t, 1.0, counterValue(plans, "index", "skiplist#1[age]"))
	assert.Equal(t, 1.0, counterValue(plans, "index", "full scan"))

	assert.Equal(t, 1.0, families["docquery_empty_plans_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, families["docquery_full_scans_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Len(t, families["docquery_operation_latency_seconds"].GetMetric(), 4)
}

func TestPrometheusCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err)
}

func TestPrometheusCollectorWithCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	ctx := context.Background()
	users := docquery.NewCollection("users", docquery.WithMetricsCollector(c))
	_, err = users.Insert(ctx, value.Document{"age": value.Int(30)})
	require.NoError(t, err)
	_, err = users.EnsureSkiplistIndex(ctx, false, "age")
	require.NoError(t, err)

	_, err = users.Execute(ctx, docquery.Query{Filter: ast.Gt(ast.Path("doc.age"), ast.ConstOf(18))})
	require.NoError(t, err)

	families := gather(t, reg)
	assert.Equal(t, 1.0, counterValue(families["docquery_plans_total"], "index", "skiplist#1[age]"))
	require.NotNil(t, families["docquery_query_results"])
}
