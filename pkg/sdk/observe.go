package cmsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics are the collectors exported with WithPrometheus.
type sdkMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	hits    *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmsearch",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation, index and outcome.",
		}, []string{"operation", "index", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cmsearch",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		hits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cmsearch",
			Subsystem: "sdk",
			Name:      "page_hits",
			Help:      "Hits returned per search page.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"index"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.hits); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at an identical collector that
// is already registered so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("cmsearch: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("cmsearch: metric registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts SDK calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call is one in-flight SDK operation.
type call struct {
	obs   *observer
	op    string
	index string
	start time.Time
}

func (o *observer) begin(op, index string) call {
	return call{obs: o, op: op, index: index, start: time.Now()}
}

// end records the outcome. Rejections and misses log at debug, failures at warn.
func (c call) end(err error) {
	o := c.obs
	if o == nil {
		return
	}
	took := time.Since(c.start)
	st := status(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(c.op, c.index, st).Inc()
		o.metrics.latency.WithLabelValues(c.op).Observe(took.Seconds())
	}
	if o.logger == nil {
		return
	}
	attrs := []any{"op", c.op, "status", st, "duration", took}
	if c.index != "" {
		attrs = append(attrs, "index", c.index)
	}
	if st == "error" {
		o.logger.Warn("cmsearch call failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("cmsearch call", attrs...)
}

// page records the size of a returned page.
func (c call) page(hits int) {
	if c.obs == nil || c.obs.metrics == nil {
		return
	}
	c.obs.metrics.hits.WithLabelValues(c.index).Observe(float64(hits))
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrIndexNotFound):
		return "not_found"
	case errors.Is(err, ErrSearchAccessDenied), errors.Is(err, ErrSearchLimit), errors.Is(err, ErrInvalidQuery):
		return "rejected"
	default:
		return "error"
	}
}
