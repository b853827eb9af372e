package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"placementprep/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestManager(t *testing.T, cfg *config.Config) *ObservabilityManager {
	t.Helper()
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "placementprep-test",
		ServiceVersion: "test",
		Enabled:        true,
		SampleRate:     1.0,
	}, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, om.manualReader)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om
}

func collectSum(t *testing.T, om *ObservabilityManager, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, om.manualReader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func enabledMetricsConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Observability.CustomMetrics.RemoteCalls.Enabled = true
	cfg.Observability.CustomMetrics.RemoteCalls.TrackDuration = true
	cfg.Observability.CustomMetrics.BusinessMetrics.Enabled = true
	cfg.Observability.CustomMetrics.Infrastructure.TrackRateLimits = true
	return cfg
}

func TestDisabledManagerIsNoop(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil, nil)
	require.NoError(t, err)

	om.RecordBusinessMetric(context.Background(), MetricSubmission, true)
	om.RemoteCallObserver("judge")(context.Background(), "run", time.Second, nil)
	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.Tracer("x"))
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	nilManager.RecordBusinessMetric(context.Background(), MetricSignIn, false)
	assert.NoError(t, nilManager.Shutdown(context.Background()))
}

func TestRemoteCallObserverRecordsCalls(t *testing.T) {
	om := newTestManager(t, enabledMetricsConfig())
	observe := om.RemoteCallObserver("judge")

	observe(context.Background(), "run", 20*time.Millisecond, nil)
	observe(context.Background(), "run", 30*time.Millisecond, errors.New("boom"))

	assert.Equal(t, int64(2), collectSum(t, om, "placementprep_remote_calls_total"))
	assert.Equal(t, int64(1), collectSum(t, om, "placementprep_remote_call_errors_total"))
}

func TestRecordBusinessMetric(t *testing.T) {
	om := newTestManager(t, enabledMetricsConfig())
	ctx := context.Background()

	om.RecordBusinessMetric(ctx, MetricTestRun, true, attribute.String("language", "java"))
	om.RecordBusinessMetric(ctx, MetricTestRun, false, attribute.String("language", "python"))
	om.RecordBusinessMetric(ctx, MetricResumeScored, true)
	om.RecordBusinessMetric(ctx, MetricRateLimitHit, false)
	om.RecordBusinessMetric(ctx, "unknown", true)

	assert.Equal(t, int64(2), collectSum(t, om, "placementprep_test_runs_total"))
	assert.Equal(t, int64(1), collectSum(t, om, "placementprep_resumes_scored_total"))
	assert.Equal(t, int64(1), collectSum(t, om, "placementprep_rate_limit_hits_total"))
}

func TestMetricTogglesRespected(t *testing.T) {
	om := newTestManager(t, &config.Config{})
	ctx := context.Background()

	om.RecordBusinessMetric(ctx, MetricSubmission, true)
	om.RecordBusinessMetric(ctx, MetricRateLimitHit, false)
	om.RemoteCallObserver("scorer")(ctx, "score", time.Second, nil)

	assert.Zero(t, collectSum(t, om, "placementprep_submissions_total"))
	assert.Zero(t, collectSum(t, om, "placementprep_rate_limit_hits_total"))
	assert.Zero(t, collectSum(t, om, "placementprep_remote_calls_total"))
}

func TestGetObservabilityConfig(t *testing.T) {
	fallback := GetObservabilityConfig(nil, "1.2.3")
	assert.Equal(t, "placementprep", fallback.ServiceName)
	assert.Equal(t, "1.2.3", fallback.ServiceVersion)
	assert.Equal(t, "/metrics", fallback.Prometheus.Endpoint)

	cfg := &config.Config{}
	cfg.Observability.ServiceName = "prep"
	cfg.Observability.Prometheus.Port = "9191"
	got := GetObservabilityConfig(cfg, "dev")
	assert.Equal(t, "prep", got.ServiceName)
	assert.Equal(t, "dev", got.ServiceVersion)
	assert.Equal(t, "9191", got.Prometheus.Port)
}
