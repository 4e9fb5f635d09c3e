package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsLabelsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	job := "entitlement-expiry"
	m.Observe(job, 250*time.Millisecond, nil)
	m.Observe(job, time.Second, errors.New("db down"))
	m.Observe(job, 5*time.Second, fmt.Errorf("scan: %w", context.DeadlineExceeded))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, result := range []string{JobResultOK, JobResultError, JobResultTimeout} {
		got, err := fetchCounterValue(mfs, "dentaldesk_cron_job_runs_total", "result", result)
		if err != nil || got != 1 {
			t.Fatalf("expected one %s run, got %f (err=%v)", result, got, err)
		}
	}
	if got, err := fetchHistogramSum(mfs, "dentaldesk_cron_job_duration_seconds", "job", job); err != nil || got < 6 {
		t.Fatalf("expected summed duration >= 6s, got %f (err=%v)", got, err)
	}
	if got, err := fetchGaugeValue(mfs, "dentaldesk_cron_job_last_success_timestamp_seconds"); err != nil || got <= 0 {
		t.Fatalf("expected last success timestamp, got %f (err=%v)", got, err)
	}
}

func TestJobMetricsWithoutRegistry(t *testing.T) {
	var m *JobMetrics
	m.Observe("x", time.Second, nil)
	NewJobMetrics(nil).Observe("x", time.Second, errors.New("boom"))
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func findMetric(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric, nil
			}
		}
	}
	return nil, fmt.Errorf("metric %q has no %s=%s series", name, label, value)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue(), nil
}
