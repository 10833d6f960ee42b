// Package metrics exposes pipeline counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rankwise.app/analyst/internal/model"
)

const namespace = "analyst"

// Collector implements the observer interfaces of the signal, synth, memory
// and orchestrator packages. A nil *Collector is valid and records nothing.
//
// Metrics:
//   - analyst_analyses_total{kind,status}
//   - analyst_analysis_duration_seconds{kind}
//   - analyst_provider_calls_total{provider,outcome}
//   - analyst_provider_duration_seconds{provider}
//   - analyst_synthesis_total{outcome}
//   - analyst_synthesis_duration_seconds
//   - analyst_memory_entries
//   - analyst_memory_evictions_total
type Collector struct {
	registry *prometheus.Registry

	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	synthesis        *prometheus.CounterVec
	synthDuration    prometheus.Histogram
	memoryEntries    prometheus.Gauge
	memoryEvictions  prometheus.Counter
}

// New registers every metric on a fresh registry, alongside the Go runtime
// and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses finished, by target kind and status (ok, degraded, failed).",
		}, []string{"kind", "status"}),
		analysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
		}, []string{"kind"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Signal provider attempts, by outcome.",
		}, []string{"provider", "outcome"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Signal provider attempt latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		}, []string{"provider"}),
		synthesis: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Recommendation synthesis calls, by outcome.",
		}, []string{"outcome"}),
		synthDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Recommendation synthesis latency, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		memoryEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_entries",
			Help:      "Entries held in the in-process memory index.",
		}),
		memoryEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_evictions_total",
			Help:      "Memory entries evicted to stay within capacity.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Analysis(kind model.TargetKind, status string, d time.Duration) {
	if c == nil {
		return
	}
	k := string(kind)
	if k == "" {
		k = "unknown"
	}
	c.analyses.WithLabelValues(k, status).Inc()
	c.analysisDuration.WithLabelValues(k).Observe(d.Seconds())
}

func (c *Collector) ProviderCall(provider, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.providerCalls.WithLabelValues(provider, outcome).Inc()
	c.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (c *Collector) Synthesis(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.synthesis.WithLabelValues(outcome).Inc()
	c.synthDuration.Observe(d.Seconds())
}

func (c *Collector) MemorySize(n int) {
	if c == nil {
		return
	}
	c.memoryEntries.Set(float64(n))
}

func (c *Collector) MemoryEvicted(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.memoryEvictions.Add(float64(n))
}
