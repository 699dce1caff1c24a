package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/realign/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	gatherer prometheus.Gatherer

	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the collectors on reg and serves them from g.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realign_transitions_total",
				Help: "Phase transitions by source and target mode",
			},
			[]string{"from", "to"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realign_validation_failures_total",
				Help: "Rejected answers by question key",
			},
			[]string{"key", "eligibility"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realign_requests_total",
				Help: "Calls to the advice and chat services by outcome",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "realign_request_duration_seconds",
				Help:    "Duration of calls to the advice and chat services",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realign_requests_in_flight",
				Help: "Calls to remote services currently outstanding",
			},
			[]string{"endpoint"},
		),
	}
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.From.Mode()), string(e.To.Mode())).Inc()
		},
		OnValidationFailed: func(_ context.Context, e *domain.ValidationEvent) {
			m.rejections.WithLabelValues(e.Key, strconv.FormatBool(e.Eligibility)).Inc()
		},
		OnRequest: func(_ context.Context, e *domain.RequestEvent) {
			m.inFlight.WithLabelValues(e.Endpoint).Inc()
		},
		OnResponse: func(_ context.Context, e *domain.RequestEvent) {
			status := "success"
			if e.IsError {
				status = "error"
			}
			m.inFlight.WithLabelValues(e.Endpoint).Dec()
			m.requests.WithLabelValues(e.Endpoint, status).Inc()
			m.requestDuration.WithLabelValues(e.Endpoint).Observe(e.Duration.Seconds())
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
