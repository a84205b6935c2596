package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the batch registry.
type Metrics struct {
	BatchesMinted      prometheus.Counter
	MintRejections     *prometheus.CounterVec
	MintDuration       prometheus.Histogram
	BatchesDeactivated prometheus.Counter
	IssuerChanges      *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BatchesMinted: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_batches_minted_total",
			Help: "Total number of batches minted",
		}),
		MintRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_batch_mint_rejections_total",
			Help: "Rejected batch mints by error code",
		}, []string{"code"}),
		MintDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonmint_batch_mint_duration_seconds",
			Help:    "Duration of batch mint including ledger creation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BatchesDeactivated: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_batches_deactivated_total",
			Help: "Total number of batches deactivated",
		}),
		IssuerChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_issuer_changes_total",
			Help: "Issuer authorizations and revocations",
		}, []string{"action"}),
	}
}

func (m *Metrics) ObserveMint(start time.Time, code string) {
	m.MintDuration.Observe(time.Since(start).Seconds())
	if code == "" {
		m.BatchesMinted.Inc()
		return
	}
	m.MintRejections.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementDeactivated() {
	m.BatchesDeactivated.Inc()
}

func (m *Metrics) IncrementIssuerChange(action string) {
	m.IssuerChanges.WithLabelValues(action).Inc()
}
