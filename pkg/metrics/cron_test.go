package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)

	metrics.ObserveDuration("payment-timeout", 250*time.Millisecond)
	metrics.IncSuccess("payment-timeout")
	metrics.IncFailure("payment-timeout")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success := counterFor(t, mfs, "ganaderia_cron_job_success_total", "payment-timeout")
	if success != 1 {
		t.Fatalf("expected success=1, got %f", success)
	}
	failure := counterFor(t, mfs, "ganaderia_cron_job_failure_total", "payment-timeout")
	if failure != 1 {
		t.Fatalf("expected failure=1, got %f", failure)
	}
	sum := histogramSumFor(t, mfs, "ganaderia_cron_job_duration_seconds", "payment-timeout")
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestCronJobMetricsNoOpWithoutRegistry(t *testing.T) {
	metrics := NewCronJobMetrics(nil)
	metrics.ObserveDuration("anything", time.Second)
	metrics.IncSuccess("anything")
	metrics.IncFailure("anything")
}

func TestCronJobMetricsDefaultsEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.IncSuccess("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := counterFor(t, mfs, "ganaderia_cron_job_success_total", "unknown"); got != 1 {
		t.Fatalf("expected unknown label counter=1, got %f", got)
	}
}

func counterFor(t *testing.T, mfs []*dto.MetricFamily, name, job string) float64 {
	t.Helper()
	metric := metricFor(t, mfs, name, job)
	return metric.GetCounter().GetValue()
}

func histogramSumFor(t *testing.T, mfs []*dto.MetricFamily, name, job string) float64 {
	t.Helper()
	metric := metricFor(t, mfs, name, job)
	return metric.GetHistogram().GetSampleSum()
}

func metricFor(t *testing.T, mfs []*dto.MetricFamily, name, job string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric
				}
			}
		}
	}
	t.Fatalf("metric %q with job=%q not found", name, job)
	return nil
}
