package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credit registry.
type Metrics struct {
	CreditsRegistered  prometheus.Counter
	CreditedAmount     prometheus.Counter
	RegisterDuration   prometheus.Histogram
	RegisterRejections *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CreditsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_credits_registered_total",
			Help: "Total number of carbon credits registered",
		}),
		CreditedAmount: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_credits_registered_amount_total",
			Help: "Sum of credit units across registered credits",
		}),
		RegisterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carbonmint_credit_register_duration_seconds",
			Help:    "Duration of credit registration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RegisterRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_credit_register_rejections_total",
			Help: "Rejected registrations by error code",
		}, []string{"code"}),
	}
}

// IncrementRegistered records a successful registration of amount units.
func (m *Metrics) IncrementRegistered(amount uint64) {
	m.CreditsRegistered.Inc()
	m.CreditedAmount.Add(float64(amount))
}

// ObserveRegister records the duration of a registration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRejected(code string) {
	m.RegisterRejections.WithLabelValues(code).Inc()
}
