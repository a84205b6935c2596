package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification gateway.
type Metrics struct {
	Requested   prometheus.Counter
	Fulfilled   *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	PendingTime prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requested: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_verification_requests_total",
			Help: "Total number of verification requests opened",
		}),
		Fulfilled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_verification_fulfillments_total",
			Help: "Verification callbacks applied, by resulting status",
		}, []string{"status"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_verification_rejections_total",
			Help: "Rejected verification operations by operation and error code",
		}, []string{"operation", "code"}),
		PendingTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonmint_verification_pending_seconds",
			Help:    "Time between a verification request and its callback",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
}

func (m *Metrics) IncrementRequested() {
	m.Requested.Inc()
}

// ObserveFulfilled records a terminal transition and how long the request
// stayed pending.
func (m *Metrics) ObserveFulfilled(status string, requestedAt, fulfilledAt time.Time) {
	m.Fulfilled.WithLabelValues(status).Inc()
	m.PendingTime.Observe(fulfilledAt.Sub(requestedAt).Seconds())
}

func (m *Metrics) IncrementRejected(operation, code string) {
	m.Rejections.WithLabelValues(operation, code).Inc()
}
