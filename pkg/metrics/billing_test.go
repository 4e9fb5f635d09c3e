package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBillingMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewBillingMetrics(reg)
	metrics.Submission("clinic", "success")
	metrics.Submission("clinic", "success")
	metrics.Review("approve", "state_conflict")
	metrics.Bootstrap("supplier", "not_entitled")
	metrics.SetStalePending(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "dentaldesk_billing_payment_submissions_total", "tenant_kind", "clinic"); err != nil || got != 2 {
		t.Fatalf("expected 2 clinic submissions, got %f (err=%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dentaldesk_billing_payment_reviews_total", "outcome", "state_conflict"); err != nil || got != 1 {
		t.Fatalf("expected 1 conflicting review, got %f (err=%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dentaldesk_billing_tenant_bootstraps_total", "outcome", "not_entitled"); err != nil || got != 1 {
		t.Fatalf("expected 1 refused bootstrap, got %f (err=%v)", got, err)
	}
	if got, err := fetchGaugeValue(mfs, "dentaldesk_billing_pending_payments_stale"); err != nil || got != 4 {
		t.Fatalf("expected stale gauge 4, got %f (err=%v)", got, err)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodPost, "/api/admin/v1/payments/{paymentId}/approve", http.StatusOK, 20*time.Millisecond)
	metrics.Observe(http.MethodPost, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "dentaldesk_http_requests_total", "route", "/api/admin/v1/payments/{paymentId}/approve"); err != nil || got != 1 {
		t.Fatalf("expected one approve request, got %f (err=%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "dentaldesk_http_requests_total", "route", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unmatched route label, got %f (err=%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "dentaldesk_http_request_duration_seconds", "status", "200"); err != nil || got <= 0 {
		t.Fatalf("expected positive duration sum, got %f (err=%v)", got, err)
	}
}
