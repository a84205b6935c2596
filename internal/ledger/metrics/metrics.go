package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for project ledgers.
type Metrics struct {
	MintedUnits  prometheus.Counter
	RetiredUnits prometheus.Counter
	Retirements  prometheus.Counter
	Rejections   *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MintedUnits: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_ledger_minted_units_total",
			Help: "Ledger units minted across all batches",
		}),
		RetiredUnits: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_ledger_retired_units_total",
			Help: "Ledger units retired across all batches",
		}),
		Retirements: f.NewCounter(prometheus.CounterOpts{
			Name: "carbonmint_ledger_retirements_total",
			Help: "Number of retirement records created",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonmint_ledger_rejections_total",
			Help: "Rejected ledger operations by operation and error code",
		}, []string{"operation", "code"}),
	}
}

func (m *Metrics) AddMinted(amount uint64) {
	m.MintedUnits.Add(float64(amount))
}

func (m *Metrics) AddRetired(amount uint64) {
	m.Retirements.Inc()
	m.RetiredUnits.Add(float64(amount))
}

func (m *Metrics) IncrementRejected(operation, code string) {
	m.Rejections.WithLabelValues(operation, code).Inc()
}
