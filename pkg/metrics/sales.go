package metrics

import "github.com/prometheus/client_golang/prometheus"

// SalesMetrics tracks the sale pipeline: completed sales, stock decrements
// that lost the race and had to be compensated, payments refused for
// exceeding an invoice, and balance drift found by the reconcile job.
type SalesMetrics struct {
	salesCompleted   *prometheus.CounterVec
	stockConflicts   prometheus.Counter
	stockRollbacks   prometheus.Counter
	overpayments     prometheus.Counter
	driftCustomers   prometheus.Gauge
	driftCorrections prometheus.Counter
}

// NewSalesMetrics registers the sale pipeline metrics on the provided
// registerer. A nil registerer yields a no-op instance.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	salesCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_completed_total",
		Help:      "Completed sales by payment mode.",
	}, []string{"mode"})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_conflicts_total",
		Help:      "Stock decrements lost to a concurrent sale.",
	})
	stockRollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_rollbacks_total",
		Help:      "Reserved stock lines returned after a failed sale.",
	})
	overpayments := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overpayments_rejected_total",
		Help:      "Payments rejected for exceeding the invoice remainder.",
	})
	driftCustomers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "balance_drift_customers",
		Help:      "Customers whose stored balance disagreed with the ledger on the last reconcile run.",
	})
	driftCorrections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_drift_corrections_total",
		Help:      "Stored balances rewritten from the ledger by the reconcile job.",
	})
	reg.MustRegister(salesCompleted, stockConflicts, stockRollbacks, overpayments, driftCustomers, driftCorrections)
	return &SalesMetrics{
		salesCompleted:   salesCompleted,
		stockConflicts:   stockConflicts,
		stockRollbacks:   stockRollbacks,
		overpayments:     overpayments,
		driftCustomers:   driftCustomers,
		driftCorrections: driftCorrections,
	}
}

func (s *SalesMetrics) IncSaleCompleted(mode string) {
	if s == nil || s.salesCompleted == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	s.salesCompleted.WithLabelValues(mode).Inc()
}

func (s *SalesMetrics) IncStockConflict() {
	if s == nil || s.stockConflicts == nil {
		return
	}
	s.stockConflicts.Inc()
}

func (s *SalesMetrics) AddStockRollbacks(n int) {
	if s == nil || s.stockRollbacks == nil || n <= 0 {
		return
	}
	s.stockRollbacks.Add(float64(n))
}

func (s *SalesMetrics) IncOverpaymentRejected() {
	if s == nil || s.overpayments == nil {
		return
	}
	s.overpayments.Inc()
}

func (s *SalesMetrics) SetDriftCustomers(n int) {
	if s == nil || s.driftCustomers == nil {
		return
	}
	s.driftCustomers.Set(float64(n))
}

func (s *SalesMetrics) AddDriftCorrections(n int) {
	if s == nil || s.driftCorrections == nil || n <= 0 {
		return
	}
	s.driftCorrections.Add(float64(n))
}
