package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the engine. Methods are nil-safe so
// components can run without metrics in tests.
type Metrics struct {
	HOSUpdates          *prometheus.CounterVec
	RecordUpdateLatency prometheus.Histogram
	ComplianceViolation *prometheus.CounterVec

	EventsProduced *prometheus.CounterVec
	EventsFailed   *prometheus.CounterVec

	MessagesConsumed *prometheus.CounterVec
	MessagesSkipped  *prometheus.CounterVec

	ProviderLatency  *prometheus.HistogramVec
	ProviderFailures *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec

	HTTPLatency *prometheus.HistogramVec
}

// New creates and registers all collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HOSUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_hos_updates_total",
			Help: "HOS record updates by outcome (accepted, rejected, failed)",
		}, []string{"outcome"}),
		RecordUpdateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hoslink_hos_record_update_duration_seconds",
			Help:    "Duration of RecordUpdate including persistence and projection",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ComplianceViolation: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_compliance_violations_total",
			Help: "Compliance checks reporting an exhausted budget, by budget",
		}, []string{"budget"}),
		EventsProduced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_events_produced_total",
			Help: "Driver domain events handed to the bus, by event type",
		}, []string{"event_type"}),
		EventsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_events_failed_total",
			Help: "Driver domain events the bus did not accept, by event type",
		}, []string{"event_type"}),
		MessagesConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_messages_consumed_total",
			Help: "Bus messages applied, by topic",
		}, []string{"topic"}),
		MessagesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_messages_skipped_total",
			Help: "Bus messages logged and skipped, by topic and reason",
		}, []string{"topic", "reason"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoslink_eld_request_duration_seconds",
			Help:    "Duration of ELD vendor HOS requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"vendor"}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hoslink_eld_request_failures_total",
			Help: "ELD vendor failures by vendor and category",
		}, []string{"vendor", "category"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hoslink_eld_circuit_breaker_open",
			Help: "Vendor circuit breaker state (0=closed, 1=open)",
		}, []string{"vendor"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoslink_http_request_duration_seconds",
			Help:    "Query API request duration by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncHOSUpdate(outcome string) {
	if m != nil {
		m.HOSUpdates.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveRecordUpdate(d time.Duration) {
	if m != nil {
		m.RecordUpdateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncComplianceViolation(budget string) {
	if m != nil {
		m.ComplianceViolation.WithLabelValues(budget).Inc()
	}
}

func (m *Metrics) IncEventProduced(eventType string) {
	if m != nil {
		m.EventsProduced.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncEventFailed(eventType string) {
	if m != nil {
		m.EventsFailed.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncMessageConsumed(topic string) {
	if m != nil {
		m.MessagesConsumed.WithLabelValues(topic).Inc()
	}
}

func (m *Metrics) IncMessageSkipped(topic, reason string) {
	if m != nil {
		m.MessagesSkipped.WithLabelValues(topic, reason).Inc()
	}
}

func (m *Metrics) ObserveProviderLatency(vendor string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(vendor).Observe(d.Seconds())
	}
}

func (m *Metrics) IncProviderFailure(vendor, category string) {
	if m != nil {
		m.ProviderFailures.WithLabelValues(vendor, category).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(vendor string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(vendor).Set(v)
}

func (m *Metrics) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
