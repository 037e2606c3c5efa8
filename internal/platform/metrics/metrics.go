// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sat"

// Metrics holds the service collectors on a private registry. All methods
// are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	roadmaps         *prometheus.CounterVec
	degradedSteps    prometheus.Counter
	questionsServed  *prometheus.CounterVec
	answers          *prometheus.CounterVec
	aiTokens         *prometheus.CounterVec
	tutorConnections prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		roadmaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roadmap_operations_total",
			Help:      "Roadmap operations by kind.",
		}, []string{"op"}),
		degradedSteps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roadmap_degraded_steps_total",
			Help:      "Roadmap tokens that could not be resolved while decoding.",
		}),
		questionsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_served_total",
			Help:      "Questions returned by the topic filter, by selection source.",
		}, []string{"source"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "practice_answers_total",
			Help:      "Practice answers by correctness.",
		}, []string{"correct"}),
		aiTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_tokens_total",
			Help:      "AI tokens consumed by model and direction.",
		}, []string{"model", "direction"}),
		tutorConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tutor_connections",
			Help:      "Open tutor WebSocket connections.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RoadmapOp counts a roadmap operation (generate, progress, delete).
func (m *Metrics) RoadmapOp(op string) {
	if m == nil {
		return
	}
	m.roadmaps.WithLabelValues(op).Inc()
}

// DegradedSteps counts unresolvable roadmap tokens.
func (m *Metrics) DegradedSteps(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.degradedSteps.Add(float64(n))
}

// QuestionsServed counts filtered questions returned to a learner.
func (m *Metrics) QuestionsServed(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.questionsServed.WithLabelValues(source).Add(float64(n))
}

// Answer counts a practice answer.
func (m *Metrics) Answer(correct bool) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

// AITokens counts tokens consumed by one completion.
func (m *Metrics) AITokens(model string, input, output int) {
	if m == nil {
		return
	}
	m.aiTokens.WithLabelValues(model, "input").Add(float64(input))
	m.aiTokens.WithLabelValues(model, "output").Add(float64(output))
}

// TutorConnected adjusts the open tutor connection gauge by delta.
func (m *Metrics) TutorConnected(delta int) {
	if m == nil {
		return
	}
	m.tutorConnections.Add(float64(delta))
}
