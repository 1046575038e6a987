// Package http exposes the scan results API and Prometheus metrics.
package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the screener's Prometheus metrics on a private
// registry, so tests and repeated construction never collide.
type MetricsRegistry struct {
	registry *prometheus.Registry

	StepDuration *prometheus.HistogramVec

	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	SymbolsScanned *prometheus.CounterVec
	BasesDetected  prometheus.Counter
	PassedGate     prometheus.Counter

	ActiveScans prometheus.Gauge
	TotalScans  prometheus.Counter
}

// cacheKinds are the payload kinds the hit ratio aggregates over.
var cacheKinds = []string{"history", "quote", "fundamentals"}

// NewMetricsRegistry creates and registers all screener metrics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "superstock_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"step", "result"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "superstock_cache_hit_ratio",
				Help: "Current cache hit ratio (0.0 to 1.0)",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superstock_cache_hits_total",
				Help: "Total number of cache hits by payload kind",
			},
			[]string{"kind"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superstock_cache_misses_total",
				Help: "Total number of cache misses by payload kind",
			},
			[]string{"kind"},
		),

		SymbolsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superstock_symbols_scanned_total",
				Help: "Total symbols processed by outcome",
			},
			[]string{"outcome"},
		),

		BasesDetected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "superstock_bases_detected_total",
				Help: "Total valid base patterns detected",
			},
		),

		PassedGate: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "superstock_passed_threshold_total",
				Help: "Total symbols that passed the score gate",
			},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "superstock_active_scans",
				Help: "Number of currently active scans",
			},
		),

		TotalScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "superstock_scans_total",
				Help: "Total number of scans initiated",
			},
		),
	}

	m.registry.MustRegister(
		m.StepDuration,
		m.CacheHitRatio,
		m.CacheHits,
		m.CacheMisses,
		m.SymbolsScanned,
		m.BasesDetected,
		m.PassedGate,
		m.ActiveScans,
		m.TotalScans,
	)
	return m
}

// StepTimer tracks execution time for pipeline steps.
type StepTimer struct {
	metrics *MetricsRegistry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a pipeline step.
func (m *MetricsRegistry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{metrics: m, step: step, start: time.Now()}
}

// Stop completes the timing and records the observation.
func (st *StepTimer) Stop(result string) {
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())

	log.Debug().
		Str("step", st.step).
		Str("result", result).
		Dur("duration", duration).
		Msg("pipeline step completed")
}

// RecordCacheHit records a cache hit for the payload kind.
func (m *MetricsRegistry) RecordCacheHit(kind string) {
	m.CacheHits.WithLabelValues(kind).Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss for the payload kind.
func (m *MetricsRegistry) RecordCacheMiss(kind string) {
	m.CacheMisses.WithLabelValues(kind).Inc()
	m.updateCacheHitRatio()
}

// RecordSymbol counts one processed symbol by outcome (scored, invalid,
// error) and its derived flags.
func (m *MetricsRegistry) RecordSymbol(outcome string, baseDetected, passedGate bool) {
	m.SymbolsScanned.WithLabelValues(outcome).Inc()
	if baseDetected {
		m.BasesDetected.Inc()
	}
	if passedGate {
		m.PassedGate.Inc()
	}
}

// ScanStarted marks a scan as running.
func (m *MetricsRegistry) ScanStarted() {
	m.ActiveScans.Inc()
	m.TotalScans.Inc()
}

// ScanFinished marks a scan as done.
func (m *MetricsRegistry) ScanFinished() {
	m.ActiveScans.Dec()
}

// updateCacheHitRatio folds the per-kind counters into the ratio gauge.
func (m *MetricsRegistry) updateCacheHitRatio() {
	var metric io_prometheus_client.Metric
	totalHits, totalMisses := 0.0, 0.0

	for _, kind := range cacheKinds {
		if counter, err := m.CacheHits.GetMetricWithLabelValues(kind); err == nil {
			if err := counter.Write(&metric); err == nil {
				totalHits += metric.GetCounter().GetValue()
			}
		}
		if counter, err := m.CacheMisses.GetMetricWithLabelValues(kind); err == nil {
			if err := counter.Write(&metric); err == nil {
				totalMisses += metric.GetCounter().GetValue()
			}
		}
	}

	if total := totalHits + totalMisses; total > 0 {
		m.CacheHitRatio.Set(totalHits / total)
	}
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw metric families, used by tests.
func (m *MetricsRegistry) Gather() ([]*io_prometheus_client.MetricFamily, error) {
	return m.registry.Gather()
}
