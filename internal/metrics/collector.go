// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector registers and updates the runtime's Prometheus metrics. All
// update methods are nil-receiver safe so callers can run without metrics.
type Collector struct {
	handoffsTotal    *prometheus.CounterVec
	toolCallsTotal   *prometheus.CounterVec
	diagnoseDuration *prometheus.HistogramVec
	rpcFailures      *prometheus.CounterVec
	fillerSpoken     prometheus.Counter
	utterances       prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a collector and registers its metrics with the given
// registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := func(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(opts, labels)
		reg.MustRegister(v)
		return v
	}

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.handoffsTotal = factory(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handoffs_total",
		Help:      "Total specialist handoffs",
	}, []string{"from", "to"})

	c.toolCallsTotal = factory(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_calls_total",
		Help:      "Total tool invocations",
	}, []string{"tool"})

	c.diagnoseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "diagnose_duration_seconds",
		Help:      "Diagnostic round-trip duration",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 60},
	}, []string{"result"})
	reg.MustRegister(c.diagnoseDuration)

	c.rpcFailures = factory(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_failures_total",
		Help:      "Device RPC failures",
	}, []string{"method"})

	c.fillerSpoken = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filler_phrases_total",
		Help:      "Filler phrases spoken during long operations",
	})
	reg.MustRegister(c.fillerSpoken)

	c.utterances = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "utterances_total",
		Help:      "User utterances handled",
	})
	reg.MustRegister(c.utterances)

	return c
}

// IncHandoff records one specialist handoff.
func (c *Collector) IncHandoff(from, to string) {
	if c == nil {
		return
	}
	c.handoffsTotal.WithLabelValues(from, to).Inc()
}

// IncToolCall records one tool invocation.
func (c *Collector) IncToolCall(tool string) {
	if c == nil {
		return
	}
	c.toolCallsTotal.WithLabelValues(tool).Inc()
}

// ObserveDiagnose records one diagnostic round-trip.
func (c *Collector) ObserveDiagnose(d time.Duration, result string) {
	if c == nil {
		return
	}
	c.diagnoseDuration.WithLabelValues(result).Observe(d.Seconds())
}

// IncRPCFailure records a failed device RPC.
func (c *Collector) IncRPCFailure(method string) {
	if c == nil {
		return
	}
	c.rpcFailures.WithLabelValues(method).Inc()
}

// IncFillerSpoken records one filler phrase.
func (c *Collector) IncFillerSpoken() {
	if c == nil {
		return
	}
	c.fillerSpoken.Inc()
}

// IncUtterance records one handled user utterance.
func (c *Collector) IncUtterance() {
	if c == nil {
		return
	}
	c.utterances.Inc()
}
