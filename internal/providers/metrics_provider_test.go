package providers

import (
	"context"
	"ecgd/internal/structures"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsTestStore struct {
	count int64
	err   error
}

func (s *metricsTestStore) CountAll(_ context.Context) (int64, error) {
	return s.count, s.err
}

func useTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGather
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
	m.IncMeasurementsIngested("Normal", false)
	m.ObserveSignalLength(180)
	m.IncAuthFailures("missing_token")
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{})
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_DomainCounters(t *testing.T) {
	useTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestStore{}).(*MetricsProvider)

	m.IncRequestsTotal("/api/history", 200)
	m.IncRequestsTotal("/api/history", 404)
	m.ObserveRequestDuration("/api/history", 5*time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(100 * time.Millisecond)
	m.IncMeasurementsIngested("Ventricular", true)
	m.IncMeasurementsIngested("Ventricular", true)
	m.IncMeasurementsIngested("Normal", false)
	m.ObserveSignalLength(6)
	m.IncAuthFailures("invalid_token")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.measurementsIngested.WithLabelValues("Ventricular", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.measurementsIngested.WithLabelValues("Normal", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFailures.WithLabelValues("invalid_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
}

func TestMetricsProvider_StoredGauge(t *testing.T) {
	reg := useTestRegistry(t)

	store := &metricsTestStore{count: 42}
	NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}}, store)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "ecgd_measurements_stored" {
			found = true
			assert.Equal(t, 42.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)

	store.err = errors.New("db down")
	families, err = reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "ecgd_measurements_stored" {
			assert.Equal(t, -1.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
