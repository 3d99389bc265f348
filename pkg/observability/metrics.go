package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atsim"

// Metrics holds the collectors for one service instance. Each instance owns
// its own registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	running      prometheus.Gauge
	ticks        *prometheus.CounterVec
	tickDuration prometheus.Histogram
	faults       *prometheus.CounterVec
	drops        prometheus.Counter
	storeCalls   *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. Go runtime and process
// collectors are registered as well.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "process_transitions_total",
				Help:      "Total number of process lifecycle transitions",
			},
			[]string{"from", "to"},
		),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_running",
			Help:      "Number of processes currently in RUNNING state",
		}),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Total number of computed ticks",
			},
			[]string{"model_id"},
		),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent computing a single tick",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_faults_total",
				Help:      "Total number of runs killed by an engine fault",
			},
			[]string{"model_id"},
		),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dropped_snapshots_total",
			Help:      "Snapshots dropped because a subscriber was too slow",
		}),
		storeCalls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_call_duration_seconds",
				Help:      "Duration of process store calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		),
	}

	m.registry.MustRegister(
		m.transitions,
		m.running,
		m.ticks,
		m.tickDuration,
		m.faults,
		m.drops,
		m.storeCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
			if e.To == domain.ProcessRunning {
				m.running.Inc()
			}
			if e.From == domain.ProcessRunning {
				m.running.Dec()
			}
		},
		OnTick: func(_ context.Context, e *domain.TickEvent) {
			m.ticks.WithLabelValues(strconv.FormatInt(e.ModelID, 10)).Inc()
			m.tickDuration.Observe(e.Duration.Seconds())
		},
		OnFault: func(_ context.Context, e *domain.FaultEvent) {
			m.faults.WithLabelValues(strconv.FormatInt(e.ModelID, 10)).Inc()
		},
	}
}

// OnDrop counts a snapshot dropped by the stream hub.
func (m *Metrics) OnDrop(string) {
	m.drops.Inc()
}

// ObserveStore records one process store call. A missing process counts as
// a successful lookup.
func (m *Metrics) ObserveStore(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		result = "error"
	}
	m.storeCalls.WithLabelValues(op, result).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
