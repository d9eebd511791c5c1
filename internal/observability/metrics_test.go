package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"lrs-tracker/internal/observability"
)

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "stats", "ok", 20*time.Millisecond)
	red.RecordRequest(ctx, "graph", "error", time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	total := findMetric(rm, "lrs.requests.total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)

	errs := findMetric(rm, "lrs.errors.total")
	require.NotNil(t, errs)
	errSum, ok := errs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errSum.DataPoints, 1)
	assert.Equal(t, int64(1), errSum.DataPoints[0].Value)

	assert.NotNil(t, findMetric(rm, "lrs.request.duration.seconds"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	done := red.TrackInflight(ctx, "graph")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	inflight := findMetric(rm, "lrs.inflight.requests")
	require.NotNil(t, inflight)
	assert.Equal(t, int64(1), inflight.Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	done()
	require.NoError(t, reader.Collect(ctx, &rm))
	inflight = findMetric(rm, "lrs.inflight.requests")
	require.NotNil(t, inflight)
	assert.Equal(t, int64(0), inflight.Data.(metricdata.Sum[int64]).DataPoints[0].Value)
}

func TestStatementGauge(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	gauge, err := observability.NewStatementGauge(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	gauge.Record(ctx, "global", 10)
	gauge.Record(ctx, "global", 12)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	m := findMetric(rm, "lrs.statements.total")
	require.NotNil(t, m)
	g, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(12), g.DataPoints[0].Value)
}

func TestInit_WithoutOTLP(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.Config{ServiceName: "lrs-tracker", ServiceVersion: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.MetricsHandler)
}
