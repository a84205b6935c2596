package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbox relay throughput and lag.
type Metrics struct {
	Published     *prometheus.CounterVec
	PublishErrors prometheus.Counter
	RelayLag      prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_outbox_published_total",
			Help: "Outbox entries published, by event type",
		}, []string{"type"}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_outbox_publish_errors_total",
			Help: "Relay passes that failed to publish",
		}),
		RelayLag: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonmint_outbox_relay_lag_seconds",
			Help:    "Time between an event being recorded and being published",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

// ObservePublished records one published entry created at createdAt.
func (m *Metrics) ObservePublished(eventType string, createdAt, now time.Time) {
	m.Published.WithLabelValues(eventType).Inc()
	m.RelayLag.Observe(now.Sub(createdAt).Seconds())
}
