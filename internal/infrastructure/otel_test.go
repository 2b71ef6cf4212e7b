package infrastructure

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
)

func TestOTelInitialization(t *testing.T) {
	logger := NewLogger(io.Discard, "error")

	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateAnalysisMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordRowsLoaded(context.Background(), "gdp", 3)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rows_loaded_total")

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelDisabled(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{Enabled: false})
	providers, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)

	assert.Nil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.MeterProvider)

	metrics, err := CreateAnalysisMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordStep(context.Background(), "load", "completed", time.Second)
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{Enabled: true, TraceToStdout: true, ServiceName: "svc"})
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, "stdout", cfg.TraceExporter)
}

func TestAnalysisMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := CreateAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordCandidate(ctx, "knn", false)
	metrics.RecordCandidate(ctx, "knn", true)
	metrics.RecordCoverageGaps(ctx, "gdp", 2)
	metrics.RecordCoverageGaps(ctx, "gdp", 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), totals["selection_candidates_evaluated_total"])
	assert.Equal(t, int64(1), totals["selection_degenerate_folds_total"])
	assert.Equal(t, int64(2), totals["coverage_gaps_total"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *AnalysisMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordRowsLoaded(ctx, "x", 1)
		m.RecordCandidate(ctx, "knn", true)
		m.RecordStep(ctx, "load", "failed", time.Millisecond)
		m.RecordRun(ctx, "completed")
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
		m.RecordExclusions(ctx, "missing_value", 3)
	})
	assert.NotNil(t, NoopAnalysisMetrics())
}

func TestSpanHelpersWithoutRecordingSpan(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		AddSpanEvent(ctx, "event", map[string]interface{}{"a": 1, "b": []string{"x"}})
		SetSpanAttributes(ctx, map[string]interface{}{"c": true})
		RecordError(ctx, assert.AnError)
	})
	assert.Empty(t, TraceIDFromContext(ctx))

	var buf bytes.Buffer
	NewLogger(&buf, "info").InfoContext(ctx, "no ids")
	assert.NotContains(t, buf.String(), "trace_id")
}
