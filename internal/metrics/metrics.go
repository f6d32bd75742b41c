// Package metrics exposes Prometheus metrics for RPCs and ledger events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/kopa/internal/events"
)

const namespace = "kopa"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	rpcDuration *prometheus.HistogramVec
	rpcTotal    *prometheus.CounterVec
	events      *prometheus.CounterVec
	eventErrors *prometheus.CounterVec
	sweeps      prometheus.Counter
	reminders   prometheus.Counter
}

// New registers every collector, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Duration of Connect RPCs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs by procedure and result code.",
		}, []string{"procedure", "code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Ledger events published, by type.",
		}, []string{"type"}),
		eventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Ledger events that could not be published, by type.",
		}, []string{"type"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_total",
			Help:      "Completed reminder sweeps.",
		}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Contribution reminders emitted by sweeps.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcDuration,
		m.rpcTotal,
		m.events,
		m.eventErrors,
		m.sweeps,
		m.reminders,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Interceptor records the duration and result code of every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.rpcTotal.WithLabelValues(procedure, code).Inc()
			return resp, err
		}
	}
}

// SweepDone counts a finished reminder sweep and the reminders it sent.
func (m *Metrics) SweepDone(sent int) {
	m.sweeps.Inc()
	m.reminders.Add(float64(sent))
}

// Publisher wraps next so every publish attempt is counted.
func (m *Metrics) Publisher(next events.Publisher) events.Publisher {
	return &countingPublisher{next: next, m: m}
}

type countingPublisher struct {
	next events.Publisher
	m    *Metrics
}

func (p *countingPublisher) Publish(ctx context.Context, e events.Event) error {
	if p.next == nil {
		return errors.New("no publisher configured")
	}
	if err := p.next.Publish(ctx, e); err != nil {
		p.m.eventErrors.WithLabelValues(string(e.Type)).Inc()
		return err
	}
	p.m.events.WithLabelValues(string(e.Type)).Inc()
	return nil
}
