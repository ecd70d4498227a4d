package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests     *prometheus.CounterVec
	LatencyMS    *prometheus.HistogramVec
	CardSessions *prometheus.CounterVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zocheckout",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zocheckout",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	cardSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zocheckout",
		Subsystem: service,
		Name:      "card_session_total",
		Help:      "Card payment initializations by outcome.",
	}, []string{"result"})

	reg.MustRegister(requests, latency, cardSessions)
	return &ServerMetrics{Requests: requests, LatencyMS: latency, CardSessions: cardSessions}
}

// CardSessionOutcome counts one finished card payment initialization.
func (m *ServerMetrics) CardSessionOutcome(outcome string) {
	m.CardSessions.WithLabelValues(outcome).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
