package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures metric registration.
type Config struct {
	ServiceName string
	Environment string
	Registerer  prometheus.Registerer
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "certifast"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func (c Config) registerer() prometheus.Registerer {
	if c.Registerer != nil {
		return c.Registerer
	}
	return prometheus.DefaultRegisterer
}

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentEvents      *prometheus.CounterVec
	creditTransactions *prometheus.CounterVec
	orderTransitions   *prometheus.CounterVec
	rateLimitDenied    *prometheus.CounterVec
}

// New registers the domain instruments.
func New(cfg Config) (*Metrics, error) {
	constLabels := cfg.constLabels()

	paymentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "certifast_payment_events_total",
		Help:        "Payment provider events processed by type and outcome.",
		ConstLabels: constLabels,
	}, []string{"provider", "event_type", "outcome"})
	creditTransactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "certifast_credit_transactions_total",
		Help:        "Credit ledger transactions by type.",
		ConstLabels: constLabels,
	}, []string{"type"})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "certifast_order_transitions_total",
		Help:        "Order status transitions to validate lifecycle health.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "certifast_rate_limit_denied_total",
		Help:        "Denied requests by endpoint for capacity triage.",
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	registerer := cfg.registerer()
	for _, collector := range []prometheus.Collector{paymentEvents, creditTransactions, orderTransitions, rateLimitDenied} {
		if err := registerer.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = already
				continue
			}
			return nil, err
		}
	}

	return &Metrics{
		paymentEvents:      paymentEvents,
		creditTransactions: creditTransactions,
		orderTransitions:   orderTransitions,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordPaymentEvent increments payment event counts.
func (m *Metrics) RecordPaymentEvent(provider, eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(strings.TrimSpace(provider), strings.TrimSpace(eventType), strings.TrimSpace(outcome)).Inc()
}

// RecordCreditTransaction increments ledger transaction counts.
func (m *Metrics) RecordCreditTransaction(txType string) {
	if m == nil {
		return
	}
	m.creditTransactions.WithLabelValues(strings.TrimSpace(txType)).Inc()
}

// RecordOrderTransition increments order transition counts.
func (m *Metrics) RecordOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(strings.TrimSpace(from), strings.TrimSpace(to)).Inc()
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(strings.TrimSpace(endpoint)).Inc()
}

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP instruments.
func NewHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	constLabels := cfg.constLabels()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "certifast_http_requests_total",
		Help:        "HTTP requests by route, method and status code.",
		ConstLabels: constLabels,
	}, []string{"route", "method", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "certifast_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"route", "method"})

	registerer := cfg.registerer()
	for _, collector := range []prometheus.Collector{requests, duration} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// Observe records one completed request.
func (m *HTTPMetrics) Observe(route, method, statusCode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, statusCode).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
