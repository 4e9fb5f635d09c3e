package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics counts payment workflow outcomes.
type BillingMetrics struct {
	submissions  *prometheus.CounterVec
	reviews      *prometheus.CounterVec
	bootstraps   *prometheus.CounterVec
	stalePending prometheus.Gauge
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "payment_submissions_total",
		Help:      "Manual payment submissions by tenant kind and outcome.",
	}, []string{"tenant_kind", "outcome"})
	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "payment_reviews_total",
		Help:      "Admin review decisions by decision and outcome.",
	}, []string{"decision", "outcome"})
	bootstraps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "tenant_bootstraps_total",
		Help:      "Tenant bootstrap attempts by tenant kind and outcome.",
	}, []string{"tenant_kind", "outcome"})
	stale := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "pending_payments_stale",
		Help:      "Payments still pending review past the configured threshold.",
	})
	reg.MustRegister(submissions, reviews, bootstraps, stale)
	return &BillingMetrics{
		submissions:  submissions,
		reviews:      reviews,
		bootstraps:   bootstraps,
		stalePending: stale,
	}
}

// Submission records one payment submission.
func (b *BillingMetrics) Submission(tenantKind, outcome string) {
	if b == nil || b.submissions == nil {
		return
	}
	b.submissions.WithLabelValues(normalizeLabel(tenantKind), normalizeLabel(outcome)).Inc()
}

// Review records one approve or reject decision.
func (b *BillingMetrics) Review(decision, outcome string) {
	if b == nil || b.reviews == nil {
		return
	}
	b.reviews.WithLabelValues(normalizeLabel(decision), normalizeLabel(outcome)).Inc()
}

// Bootstrap records one tenant bootstrap attempt.
func (b *BillingMetrics) Bootstrap(tenantKind, outcome string) {
	if b == nil || b.bootstraps == nil {
		return
	}
	b.bootstraps.WithLabelValues(normalizeLabel(tenantKind), normalizeLabel(outcome)).Inc()
}

// SetStalePending publishes the number of stale pending payments.
func (b *BillingMetrics) SetStalePending(count int64) {
	if b == nil || b.stalePending == nil {
		return
	}
	b.stalePending.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
