package providers

import (
	"context"
	"ecgd/internal/structures"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncMeasurementsIngested(prediction string, anomaly bool)
	ObserveSignalLength(samples int)
	IncAuthFailures(reason string)
}

// MeasurementCounter is the slice of the measurement store the
// stored-records gauge needs.
type MeasurementCounter interface {
	CountAll(ctx context.Context) (int64, error)
}

type MetricsProvider struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	persistenceDuration  prometheus.Histogram
	measurementsIngested *prometheus.CounterVec
	signalLength         prometheus.Histogram
	authFailures         *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncMeasurementsIngested(prediction string, anomaly bool) {
	m.measurementsIngested.WithLabelValues(prediction, strconv.FormatBool(anomaly)).Inc()
}

func (m *MetricsProvider) ObserveSignalLength(samples int) {
	m.signalLength.Observe(float64(samples))
}

func (m *MetricsProvider) IncAuthFailures(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, store MeasurementCounter) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ecgd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecgd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecgd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecgd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecgd_persistence_duration_seconds",
			Help:    "Duration of measurement store writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		measurementsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ecgd_measurements_ingested_total",
			Help: "Measurements analyzed and stored, by predicted class",
		}, []string{"prediction", "anomaly"}),

		signalLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecgd_signal_samples",
			Help:    "Number of samples per submitted signal",
			Buckets: prometheus.ExponentialBuckets(8, 4, 8),
		}),

		authFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ecgd_auth_failures_total",
			Help: "Rejected requests by reason",
		}, []string{"reason"}),
	}

	if store != nil {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ecgd_measurements_stored",
			Help: "Number of measurements currently stored",
		}, func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := store.CountAll(ctx)
			if err != nil {
				return -1
			}
			return float64(n)
		})
	}

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncMeasurementsIngested(_ string, _ bool)         {}
func (n *noopMetrics) ObserveSignalLength(_ int)                        {}
func (n *noopMetrics) IncAuthFailures(_ string)                         {}
