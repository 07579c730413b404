// Package metrics exposes Prometheus metrics of preview sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Namespace prefixes every metric name
const Namespace = "gopreview"

// Collector records session, load, frame and capture metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	sessionsActive prometheus.Gauge
	framesRendered prometheus.Counter
	capturesTotal  *prometheus.CounterVec
	loadsTotal     *prometheus.CounterVec
	loadDuration   prometheus.Histogram

	logger *zap.Logger
}

// NewCollector registers the metrics on a fresh registry
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "sessions_active",
		Help:      "Number of preview sessions that are not closed",
	})

	c.framesRendered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "frames_rendered_total",
		Help:      "Total number of rendered frames",
	})

	c.capturesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "captures_total",
			Help:      "Total number of capture requests by result",
		},
		[]string{"result"},
	)

	c.loadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "loads_total",
			Help:      "Total number of model loads by result",
		},
		[]string{"result"},
	)

	c.loadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "load_duration_seconds",
		Help:      "Model load duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	c.logger.Debug("metrics collector initialized", zap.String("namespace", Namespace))
	return c
}

// Registry returns the registry holding the metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SessionOpened counts a new session
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
}

// SessionClosed counts a session that ended
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

// RecordFrame counts one rendered frame
func (c *Collector) RecordFrame() {
	if c == nil {
		return
	}
	c.framesRendered.Inc()
}

// RecordLoad records a finished load. result is "ok" or the failure reason.
func (c *Collector) RecordLoad(result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.loadsTotal.WithLabelValues(result).Inc()
	c.loadDuration.Observe(duration.Seconds())
}

// RecordCapture records a capture request. result is "ok", "unavailable"
// or "error".
func (c *Collector) RecordCapture(result string) {
	if c == nil {
		return
	}
	c.capturesTotal.WithLabelValues(result).Inc()
}
