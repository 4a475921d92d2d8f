package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics exposes counters/histograms for the billing core.
type BillingMetrics struct {
	payTotal       *prometheus.CounterVec
	searchTotal    *prometheus.CounterVec
	searchDuration prometheus.Histogram
	nameLookups    *prometheus.CounterVec
	artifactTotal  *prometheus.CounterVec
}

func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	m := &BillingMetrics{
		payTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "billing",
			Name:      "pay_total",
			Help:      "Total markPaid attempts by outcome",
		}, []string{"outcome"}),
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "search",
			Name:      "invocations_total",
			Help:      "Total search invocations by outcome (applied or superseded)",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carehub",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time from search invocation to fan-in completion",
			Buckets:   prometheus.DefBuckets,
		}),
		nameLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "directory",
			Name:      "name_lookups_total",
			Help:      "Name resolutions by kind and result (hit, miss, fallback)",
		}, []string{"kind", "result"}),
		artifactTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "artifact",
			Name:      "generated_total",
			Help:      "Bill artifact generations by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.payTotal, m.searchTotal, m.searchDuration, m.nameLookups, m.artifactTotal)
	return m
}

func (m *BillingMetrics) ObservePay(outcome string) {
	if m == nil {
		return
	}
	m.payTotal.WithLabelValues(outcome).Inc()
}

func (m *BillingMetrics) ObserveSearch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(seconds)
}

func (m *BillingMetrics) ObserveNameLookup(kind, result string) {
	if m == nil {
		return
	}
	m.nameLookups.WithLabelValues(kind, result).Inc()
}

func (m *BillingMetrics) ObserveArtifact(outcome string) {
	if m == nil {
		return
	}
	m.artifactTotal.WithLabelValues(outcome).Inc()
}
