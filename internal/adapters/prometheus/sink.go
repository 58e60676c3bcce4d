package prometheus

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

const eventsMetric = "abcta_events_total"

// Sink counts experiment events in a Prometheus registry.
type Sink struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewSink registers the collector metrics on a fresh registry.
func NewSink() *Sink {
	reg := prometheus.NewRegistry()

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: eventsMetric,
		Help: "Experiment events received, by test, event and variant.",
	}, []string{"test_id", "event", "variant"})

	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abcta_events_rejected_total",
		Help: "Posted records the collector could not accept, by reason.",
	}, []string{"reason"})

	reg.MustRegister(events, rejected)

	return &Sink{registry: reg, events: events, rejected: rejected}
}

func (s *Sink) Name() string { return "prometheus" }

func (s *Sink) Track(ctx context.Context, e domain.Event) error {
	variant, _ := e.Properties[domain.KeyVariant].(string)
	s.events.WithLabelValues(e.TestID, e.Name, variant).Inc()
	return nil
}

// Rejected counts a record the collector refused.
func (s *Sink) Rejected(reason string) {
	s.rejected.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
