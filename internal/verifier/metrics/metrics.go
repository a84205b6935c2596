package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verifier adapter.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	RegistryCalls   *prometheus.CounterVec
	RegistryLatency prometheus.Histogram
	BreakerOpen     prometheus.Gauge
	SweptRequests   prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_verifier_outcomes_total",
			Help: "Verifier processing results by outcome",
		}, []string{"outcome"}),
		RegistryCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_verifier_registry_calls_total",
			Help: "Registry API calls by result category",
		}, []string{"result"}),
		RegistryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonmint_verifier_registry_latency_seconds",
			Help:    "Registry API call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "carbonmint_verifier_registry_breaker_open",
			Help: "1 while the registry circuit breaker is open",
		}),
		SweptRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_verifier_swept_requests_total",
			Help: "Pending requests re-dispatched by the sweeper",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegistryCall(result string, elapsed time.Duration) {
	m.RegistryCalls.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.RegistryLatency.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) AddSwept(n int) {
	m.SweptRequests.Add(float64(n))
}
